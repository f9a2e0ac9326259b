package plan

import "github.com/softskillslab/quiz-engine/internal/session"

type packEntry struct {
	pdf   string
	pages string
	note  string
}

// coursePackPages maps category label and level band to the pages of the
// course material worth studying. Shown on the first attempt only.
var coursePackPages = map[string]map[session.Level][]packEntry{
	"Communication": {
		session.LevelLow: {
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "1–6", note: "Βασικές αρχές σαφήνειας και τεχνικής γραφής."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "1–4", note: "Εισαγωγή στη βασική δομή ενός τεχνικού κειμένου."},
			{pdf: "ΣΤ. Ανάπτυξη Δεξιοτήτων Τεχνικής Παρουσίασης", pages: "1–4", note: "Πρώτες αρχές για το πώς παρουσιάζουμε τεχνικό περιεχόμενο."},
		},
		session.LevelMid: {
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "7–12", note: "Πρακτικές συμβουλές για βελτίωση σαφήνειας και συνοχής."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "5–10", note: "Ιεράρχηση περιεχομένου και καλύτερη ροή επιχειρημάτων."},
			{pdf: "ΣΤ. Ανάπτυξη Δεξιοτήτων Τεχνικής Παρουσίασης", pages: "5–10 | 41", note: "Βασική δομή τεχνικής παρουσίασης και storytelling. | Πολυδιάστατη επικοινωνία"},
		},
		session.LevelHigh: {
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "13–18", note: "Προχωρημένες τεχνικές σύνθεσης και βελτίωσης κειμένου."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "11–14", note: "Συνοχή, ρυθμός κειμένου και σύνδεση παραγράφων."},
			{pdf: "ΣΤ. Ανάπτυξη Δεξιοτήτων Τεχνικής Παρουσίασης", pages: "11–16 | 41 | 45", note: "Προχωρημένες τεχνικές παρουσίασης και αφήγησης. | Ολοκληρωμένη έκφραση. | Αλληλεπίδραση και εμπιστοσύνη"},
		},
	},
	"Teamwork": {
		session.LevelLow: {
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "7–10", note: "Συνεργασία μεταξύ μηχανικών στη συγγραφή κειμένων."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "27–28", note: "Ζήτηση βοήθειας για λάθη και Βοήθεια σε ορολογία."},
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση", pages: "2–4", note: "Πώς μοιραζόμαστε την αναζήτηση και τα ευρήματα."},
		},
		session.LevelMid: {
			{pdf: "Ε. Η πρώτη προσέγγιση", pages: "9-10", note: "Γνώση των συνεργατών ως κοινό και Συνάδελφοι ως αποδέκτες."},
			{pdf: "Β. Βιβλιογραφική αναζήτηση και οργάνωση", pages: "6", note: "Αναζήτηση καθοδήγησης εντός ομάδας."},
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "10", note: "Αναγνώριση συμβολής άλλων (αναφορές)."},
		},
		session.LevelHigh: {
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "13-14", note: "Αναγνώριση συμβολής σε βάθος."},
			{pdf: "Β. Βιβλιογραφική αναζήτηση και οργάνωση", pages: "4-5", note: "Σύνδεση με την επιστημονική κοινότητα και Εναρμόνιση με το συλλογικό πλαίσιο"},
			{pdf: "ΣΤ. Ανάπτυξη Δεξιοτήτων Τεχνικής Παρουσίασης", pages: "8–12", note: "Ομαδική παρουσίαση, ρόλοι και κύκλοι feedback."},
			{pdf: "Ε. Η πρώτη προσέγγιση", pages: "12", note: "Διαχείριση πολλαπλών ενδιαφερομένων."},
		},
	},
	"Problem Solving": {
		session.LevelLow: {
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση", pages: "12-16", note: "Αδυναμία κατανόησης πολύπλοκων εργασιών και Έλλειψη οργάνωσης πληροφοριών"},
			{pdf: "Β. Βιβλιογραφική αναζήτηση και οργάνωση (Μέρος Α)", pages: "1–4", note: "Βασικές στρατηγικές για να βρεις σχετικό υλικό."},
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "12–14", note: "Οργάνωση σκέψης πριν ξεκινήσεις να γράφεις τη λύση."},
		},
		session.LevelMid: {
			{pdf: "Β. Βιβλιογραφική αναζήτηση και οργάνωση (Μέρος Α)", pages: "5–10", note: "Κριτική αξιολόγηση πηγών και σύνδεσή τους με το πρόβλημα."},
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση (Μέρος Β)", pages: "3–7", note: "Δομημένη ανάλυση πληροφοριών και επιλογή κατάλληλων πηγών."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "1–4", note: "Πώς χτίζεις λογική δομή για να εξηγήσεις μια λύση."},
		},
		session.LevelHigh: {
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση (Μέρος Β)", pages: "8–13", note: "Σύνθεση γνώσης από πολλές πηγές για πολύπλοκα προβλήματα και Βαθιά ανάλυση."},
			{pdf: "Δ. Δομή και περιεχόμενο τεχνικών κειμένων", pages: "5–10", note: "Σύνδεση συμπερασμάτων με αποδείξεις και τεκμηρίωση."},
			{pdf: "Ε. Η πρώτη προσέγγιση", pages: "6–8", note: "Προχωρημένη αιτιολόγηση και σύγκριση εναλλακτικών λύσεων."},
		},
	},
	"Leadership": {
		session.LevelLow: {
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση", pages: "2", note: "Έλλειψη πρωτοβουλίας"},
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "7-10", note: "Υποτίμηση της συγγραφής, Βασικές δεξιότητες και Εντολές αντί καθοδήγησης"},
		},
		session.LevelMid: {
			{pdf: "Ε. Η πρώτη προσέγγιση", pages: "5–9", note: "Γνώση του κοινού και Αναφορά σε ανώτερους"},
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "6–10", note: "Αυξημένες ευθύνες σε υψηλότερες θέσεις και Λήψη αποφάσεων από managers"},
		},
		session.LevelHigh: {
			{pdf: "ΣΤ. Ανάπτυξη Δεξιοτήτων Τεχνικής Παρουσίασης", pages: "10–16", note: "Προχωρημένες τεχνικές παρουσίασης, χειρισμός δύσκολου κοινού και ηγεσία σε συζητήσεις."},
			{pdf: "Α. Τεχνική συγγραφή και Μηχανικοί", pages: "11–15", note: "Ηγετικός ρόλος στη διαμόρφωση τελικού τεχνικού κειμένου και λήψη αποφάσεων."},
			{pdf: "Γ. Βιβλιογραφική αναζήτηση και οργάνωση (Μέρος Β)", pages: "8–12", note: "Στρατηγικές αποφάσεις για το τι μπαίνει/βγαίνει από τη βιβλιογραφία και πώς κατευθύνεις την ομάδα."},
		},
	},
}

// CoursePackSuggestions resolves the page recommendations for every scored
// category at its level band, in the summary's category order.
func CoursePackSuggestions(summary session.Summary) []CoursePackSuggestion {
	var out []CoursePackSuggestion
	for _, label := range summary.CategoryOrder {
		band := session.LevelFor(summary.PerCategory[label])
		cfg, ok := coursePackPages[label]
		if !ok {
			continue
		}
		for _, entry := range cfg[band] {
			out = append(out, CoursePackSuggestion{
				Category: label,
				Band:     string(band),
				PDF:      entry.pdf,
				Pages:    entry.pages,
				Note:     entry.note,
			})
		}
	}
	return out
}

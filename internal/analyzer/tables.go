package analyzer

import (
	"strings"

	"go-smear-analyzer/pkg/models"
)

// namedColorRule is one row of the ordered coarse-name decision table.
// Bounds are inclusive; the first matching row wins.
type namedColorRule struct {
	name  string
	lower [3]int
	upper [3]int
}

var colorNameRules = []namedColorRule{
	{"Red", [3]int{150, 0, 0}, [3]int{255, 100, 100}},
	{"White", [3]int{200, 200, 200}, [3]int{255, 255, 255}},
	{"Blue", [3]int{0, 0, 150}, [3]int{100, 150, 255}},
	{"Purple", [3]int{100, 0, 150}, [3]int{255, 100, 255}},
	{"Orange", [3]int{200, 100, 0}, [3]int{255, 180, 100}},
	{"Yellow", [3]int{200, 200, 0}, [3]int{255, 255, 100}},
	{"Green", [3]int{0, 150, 0}, [3]int{100, 255, 100}},
	{"Pink", [3]int{200, 100, 100}, [3]int{255, 255, 255}},
}

// coarseColorName returns the first matching name from the decision table,
// or "Mixed" when no row matches.
func coarseColorName(r, g, b int) string {
	for _, rule := range colorNameRules {
		if r >= rule.lower[0] && r <= rule.upper[0] &&
			g >= rule.lower[1] && g <= rule.upper[1] &&
			b >= rule.lower[2] && b <= rule.upper[2] {
			return rule.name
		}
	}
	return "Mixed"
}

// diseaseSignature associates a disease label with the color bands its
// staining appearance is expected to populate. Scores derived from these
// bands are an explainable co-signal, never the primary diagnosis.
type diseaseSignature struct {
	disease string
	bands   []models.ColorRange
}

var diseaseSignatures = []diseaseSignature{
	{
		disease: "Malaria (Plasmodium)",
		bands: []models.ColorRange{
			{Name: "parasite_nucleus", Lower: [3]uint8{90, 40, 110}, Upper: [3]uint8{170, 110, 200}},
			{Name: "infected_pallor", Lower: [3]uint8{200, 160, 160}, Upper: [3]uint8{255, 220, 220}},
		},
	},
	{
		disease: "Babesia",
		bands: []models.ColorRange{
			{Name: "piriform_body", Lower: [3]uint8{100, 50, 120}, Upper: [3]uint8{180, 120, 210}},
			{Name: "pale_ring", Lower: [3]uint8{190, 150, 160}, Upper: [3]uint8{250, 210, 220}},
		},
	},
	{
		disease: "Acute Lymphoblastic Leukemia",
		bands: []models.ColorRange{
			{Name: "blast_nucleus", Lower: [3]uint8{70, 40, 130}, Upper: [3]uint8{150, 100, 220}},
			{Name: "scant_cytoplasm", Lower: [3]uint8{150, 130, 200}, Upper: [3]uint8{210, 190, 245}},
		},
	},
	{
		disease: "Chronic Myeloid Leukemia",
		bands: []models.ColorRange{
			{Name: "granulocyte_excess", Lower: [3]uint8{120, 80, 150}, Upper: [3]uint8{200, 150, 230}},
			{Name: "basophilic_granules", Lower: [3]uint8{60, 40, 100}, Upper: [3]uint8{130, 100, 180}},
		},
	},
	{
		disease: "Anemia",
		bands: []models.ColorRange{
			{Name: "hypochromic_rbc", Lower: [3]uint8{220, 170, 170}, Upper: [3]uint8{255, 230, 230}},
			{Name: "central_pallor", Lower: [3]uint8{230, 210, 200}, Upper: [3]uint8{255, 245, 240}},
		},
	},
	{
		disease: "Thrombocytopenia",
		bands: []models.ColorRange{
			{Name: "sparse_platelet_field", Lower: [3]uint8{200, 140, 150}, Upper: [3]uint8{255, 200, 210}},
		},
	},
}

// Reference cell diameters in micrometers.
var referenceDiameters = map[models.CellType]float64{
	models.CellRBC:      7.5,
	models.CellWBC:      12.0,
	models.CellPlatelet: 2.0,
}

// stainingRecommendation maps an overall-score bracket (lower-inclusive) to
// the advice returned with the staining grade.
type stainingRecommendation struct {
	minScore float64
	grade    string
	advice   []string
}

var stainingRecommendations = []stainingRecommendation{
	{90, models.GradeExcellent, []string{
		"Staining quality is optimal for automated analysis",
	}},
	{80, models.GradeGood, []string{
		"Minor staining variation detected; verify stain freshness",
	}},
	{70, models.GradeFair, []string{
		"Consider re-staining with fresh Giemsa solution",
		"Check buffer pH (target 6.8-7.2)",
	}},
	{60, models.GradePoor, []string{
		"Re-stain the smear before diagnostic use",
		"Verify stain and buffer preparation",
	}},
	{0, models.GradeUnacceptable, []string{
		"Prepare and stain a new smear",
		"Review the full staining protocol before repeating",
	}},
}

// analysisNotes maps a primary classifier finding to the note attached to
// the assembled report.
func analysisNotes(prediction string) string {
	switch {
	case prediction == "Normal":
		return "Blood smear shows normal cellular morphology. RBC, WBC, and platelet counts within expected ranges."
	case strings.Contains(prediction, "Malaria"), strings.Contains(prediction, "Babesia"), strings.Contains(prediction, "Leishmania"):
		return "Parasitic inclusions detected. Recommend immediate treatment protocol."
	case strings.Contains(prediction, "Leukemia"):
		return "Abnormal white blood cell morphology detected. Recommend hematology consultation and bone marrow biopsy."
	case strings.Contains(prediction, "Anemia"):
		return "Reduced red blood cell count detected. Consider iron studies and further investigation."
	case prediction == "":
		return ""
	default:
		return "Abnormal findings detected. Clinical correlation and additional testing recommended."
	}
}

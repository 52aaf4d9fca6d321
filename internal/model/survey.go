package model

type StudyStatus string

const (
	StudyStatusNew       StudyStatus = "NEW"
	StudyStatusStudying  StudyStatus = "STUDYING"
	StudyStatusGraduated StudyStatus = "GRADUATED"
)

var StudyStatuses = []StudyStatus{StudyStatusNew, StudyStatusStudying, StudyStatusGraduated}

func ParseStudyStatus(v string) (StudyStatus, bool) {
	for _, s := range StudyStatuses {
		if string(s) == v {
			return s, true
		}
	}
	return "", false
}

type AgeRange string

const (
	AgeRange18to24 AgeRange = "18-24"
	AgeRange25to34 AgeRange = "25-34"
	AgeRange35to44 AgeRange = "35-44"
	AgeRange45to54 AgeRange = "45-54"
	AgeRange55Plus AgeRange = "55+"
)

var AgeRanges = []AgeRange{AgeRange18to24, AgeRange25to34, AgeRange35to44, AgeRange45to54, AgeRange55Plus}

func ParseAgeRange(v string) (AgeRange, bool) {
	for _, a := range AgeRanges {
		if string(a) == v {
			return a, true
		}
	}
	return "", false
}

// DefaultRegions are the regions of Uzbekistan offered when none are configured.
var DefaultRegions = []string{
	"Tashkent",
	"Tashkent Region",
	"Andijan",
	"Bukhara",
	"Fergana",
	"Jizzakh",
	"Khorezm",
	"Namangan",
	"Navoi",
	"Kashkadarya",
	"Karakalpakstan",
	"Samarkand",
	"Syrdarya",
	"Surkhandarya",
}

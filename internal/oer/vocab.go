package oer

// Namespaces of the controlled vocabularies used for resource types,
// difficulty levels and licenses.
const (
	ModaliaNS         = "https://purl.org/ontology/modalia#"
	HCRTNS            = "https://w3id.org/kim/hcrt/"
	SchemaNS          = "https://schema.org/"
	BiboNS            = "http://purl.org/ontology/bibo/"
	LicenseOntologyNS = "https://w3id.org/license-ontology/"
	SPDXLicensesURL   = "http://spdx.org/licenses/"
)

// Difficulty levels, ordered from lowest to highest proficiency.
const (
	Novice           = ModaliaNS + "Novice"
	AdvancedBeginner = ModaliaNS + "AdvancedBeginner"
	Beginner         = ModaliaNS + "Beginner"
	Competent        = ModaliaNS + "Competent"
	Proficient       = ModaliaNS + "Proficient"
	Expert           = ModaliaNS + "Expert"
)

// ProficiencyOrder ranks the difficulty levels; lower is easier.
var ProficiencyOrder = map[string]int{
	Novice:           0,
	Beginner:         1,
	AdvancedBeginner: 1,
	Competent:        2,
	Proficient:       3,
	Expert:           4,
}

// Resource type terms shared by several sources.
const (
	TypeTutorial        = ModaliaNS + "Tutorial"
	TypeWorkshop        = ModaliaNS + "Workshop"
	TypeCodeNotebook    = ModaliaNS + "CodeNotebook"
	TypeSlide           = HCRTNS + "slide"
	TypeVideo           = SchemaNS + "VideoObject"
	TypeSoftware        = SchemaNS + "SoftwareSourceCode"
	TypePoster          = SchemaNS + "Poster"
	TypePodcastEpisode  = SchemaNS + "PodcastEpisode"
	TypeDigitalDocument = SchemaNS + "DigitalDocument"
	TypePhotograph      = SchemaNS + "Photograph"
	TypeBook            = BiboNS + "Book"
)

// Lifecycle states.
const (
	StatusActive = "Active"
	StatusDraft  = "Draft"
)

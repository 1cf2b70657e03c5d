package domain

// Audiences a library can serve.
const (
	// AudiencePublic is the general public.
	AudiencePublic = "public"
	// AudienceEducationalPrimary is pre-university students.
	AudienceEducationalPrimary = "educational-primary"
	// AudienceEducationalSecondary is university students.
	AudienceEducationalSecondary = "educational-secondary"
	// AudienceResearch is academics and researchers.
	AudienceResearch = "research"
	// AudiencePrintDisability is people with print disabilities.
	AudiencePrintDisability = "print-disability"
	// AudienceOther is a catch-all for other specialized audiences.
	AudienceOther = "other"
)

// KnownAudiences lists every recognized audience tag.
var KnownAudiences = []string{
	AudiencePublic, AudienceEducationalPrimary, AudienceEducationalSecondary,
	AudienceResearch, AudiencePrintDisability, AudienceOther,
}

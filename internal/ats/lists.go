package ats

// skillTerms is matched case-insensitively as substrings of the resume text.
// The list is part of the scoring contract; changing it changes historical
// comparability of scores.
var skillTerms = []string{
	// Technical
	"javascript",
	"typescript",
	"python",
	"java",
	"react",
	"angular",
	"vue",
	"node.js",
	"sql",
	"postgresql",
	"mongodb",
	"aws",
	"azure",
	"docker",
	"kubernetes",
	"git",
	"linux",
	"html",
	"css",
	"graphql",
	"rest api",
	"machine learning",
	"data analysis",
	"tensorflow",
	"excel",

	// Business
	"project management",
	"agile",
	"scrum",
	"leadership",
	"marketing",
	"sales",
	"budgeting",
	"strategic planning",
	"stakeholder management",
	"product management",

	// General
	"communication",
	"teamwork",
	"problem solving",
	"critical thinking",
	"time management",
	"collaboration",
	"negotiation",
	"customer service",
	"research",
	"presentation",
}

// actionKeywords are the action verbs recruiters and ATS filters look for.
var actionKeywords = []string{
	"achieved",
	"improved",
	"developed",
	"managed",
	"created",
	"implemented",
	"designed",
	"led",
	"increased",
	"reduced",
	"launched",
	"built",
	"delivered",
	"optimized",
	"coordinated",
	"established",
	"streamlined",
	"mentored",
	"negotiated",
	"analyzed",
	"spearheaded",
	"automated",
}

// Suggestion texts, appended in this order.
const (
	SuggestionMoreSkills    = "Add more relevant skills to your resume. Aim for at least 5 recognized technical or professional skills."
	SuggestionActionVerbs   = "Use more action verbs such as achieved, improved, developed or led to describe your accomplishments."
	SuggestionContactInfo   = "Include contact information such as an email address or phone number."
	SuggestionSkillsSection = "Add a dedicated skills section so applicant tracking systems can find your competencies."
	SuggestionTooShort      = "Your resume seems short. Aim for 200 to 800 words with more detail about your experience."
	SuggestionTooLong       = "Your resume is long. Consider trimming it to under 800 words."
)

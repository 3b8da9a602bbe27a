package model

// CourseCard is a course shown in the static listing on the landing page
type CourseCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CourseCards is the fixed marketing course listing
var CourseCards = []CourseCard{
	{
		Title:       "Data Science",
		Description: "Master Python, machine learning, and data visualization to unlock insights from complex datasets.",
		Icon:        "brain",
	},
	{
		Title:       "AI Automation Testing",
		Description: "Learn cutting-edge AI-powered testing with Playwright and Cypress for robust applications.",
		Icon:        "test-tube",
	},
	{
		Title:       "UI/UX Designing",
		Description: "Create stunning user experiences with modern design principles and industry-standard tools.",
		Icon:        "palette",
	},
	{
		Title:       "DevOps",
		Description: "Build, deploy, and scale applications with CI/CD, containerization, and cloud infrastructure.",
		Icon:        "server",
	},
	{
		Title:       "Workflow Automation",
		Description: "Streamline business processes and boost productivity with no-code automation solutions.",
		Icon:        "workflow",
	},
	{
		Title:       "Full Stack Development",
		Description: "Become a versatile developer with expertise in both frontend and backend technologies.",
		Icon:        "code",
	},
}

// CourseOptions are the courses a student can pick on the enrollment form.
// Testing is offered per tool here, unlike CourseCards.
var CourseOptions = []string{
	"Data Science",
	"AI Based Automation Testing in Playwright",
	"AI Based Automation Testing in Cypress",
	"UI/UX Designing",
	"Devops",
	"Workflow Automation",
}

// IsCourseOption reports whether name is one of CourseOptions
func IsCourseOption(name string) bool {
	for _, c := range CourseOptions {
		if c == name {
			return true
		}
	}
	return false
}

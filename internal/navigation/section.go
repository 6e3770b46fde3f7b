package navigation

import "strings"

// Section is a dashboard section addressed by a URL fragment.
type Section string

const (
	SectionDashboard  Section = "dashboard"
	SectionStudents   Section = "students"
	SectionReports    Section = "reports"
	SectionAddStudent Section = "add-student"
)

// DefaultFragment is used when the URL carries no fragment.
const DefaultFragment = "#dashboard"

// Fragment returns the "#section" form used in links.
func (s Section) Fragment() string {
	return "#" + string(s)
}

// Title derives a human-readable page title.
func (s Section) Title() string {
	return PageTitle(string(s))
}

// PageTitle splits a fragment on hyphens and capitalises each word.
func PageTitle(fragment string) string {
	words := strings.Split(strings.TrimPrefix(fragment, "#"), "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// Resolution is the outcome of navigating to a fragment: every section is
// hidden, then Visible is revealed when it exists.
type Resolution struct {
	Visible Section
	Title   string
	Found   bool
}

// Resolve matches fragment against the sections offered by the current view.
// An unknown fragment reveals nothing and carries no title; callers keep
// their current one.
func Resolve(fragment string, available []Section) Resolution {
	if strings.TrimSpace(fragment) == "" || fragment == "#" {
		fragment = DefaultFragment
	}
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}
	for _, section := range available {
		if section.Fragment() == fragment {
			return Resolution{Visible: section, Title: PageTitle(fragment), Found: true}
		}
	}
	return Resolution{}
}

// IsVisible is used by templates to toggle the hidden class.
func (r Resolution) IsVisible(section Section) bool {
	return r.Found && r.Visible == section
}

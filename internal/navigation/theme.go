package navigation

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the client-local storage key holding the preference.
const ThemeKey = "theme"

// ThemeStore persists the preference on the client.
type ThemeStore interface {
	LoadTheme() (string, bool)
	SaveTheme(Theme)
}

// ParseTheme falls back to light for anything that is not "dark".
func ParseTheme(raw string) Theme {
	if Theme(raw) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// BodyClass is the class applied to the page body.
func (t Theme) BodyClass() string {
	if t == ThemeDark {
		return "dark-mode"
	}
	return "light-mode"
}

// Flip returns the other theme.
func (t Theme) Flip() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ApplyTheme returns the stored preference, defaulting to light.
func ApplyTheme(store ThemeStore) Theme {
	raw, ok := store.LoadTheme()
	if !ok {
		return ThemeLight
	}
	return ParseTheme(raw)
}

// ToggleTheme flips the stored preference with a single write and returns the
// new value, which is also the class state the next render applies.
func ToggleTheme(store ThemeStore) Theme {
	next := ApplyTheme(store).Flip()
	store.SaveTheme(next)
	return next
}

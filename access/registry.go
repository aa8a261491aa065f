package access

import "strings"

// View is a dashboard view the application can render.
type View string

const (
	ViewCEO      View = "ceo"
	ViewCOO      View = "coo"
	ViewCFO      View = "cfo"
	ViewCIO      View = "cio"
	ViewLeaders  View = "leaders"
	ViewDataCard View = "datacard"
	ViewTesting  View = "testing"
	ViewChat     View = "chat"
)

// registeredViews is the static registry of every view the client knows how
// to render. Granted tabs are matched against it case-insensitively; a
// grant for an unknown view is ignored.
var registeredViews = map[string]View{
	"ceo":      ViewCEO,
	"coo":      ViewCOO,
	"cfo":      ViewCFO,
	"cio":      ViewCIO,
	"leaders":  ViewLeaders,
	"datacard": ViewDataCard,
	"testing":  ViewTesting,
	"chat":     ViewChat,
}

// AllowedViews projects a grant set onto the view registry. A nil
// Permissions yields no views: a failed or missing permission fetch must
// never widen access.
func AllowedViews(perms *Permissions) []View {
	if perms == nil {
		return nil
	}

	views := make([]View, 0, len(perms.AllowedTabs))
	seen := make(map[View]bool)
	for _, tab := range perms.AllowedTabs {
		view, ok := registeredViews[strings.ToLower(tab.IDName)]
		if !ok || seen[view] {
			continue
		}
		seen[view] = true
		views = append(views, view)
	}
	return views
}

// CanView reports whether the grant set includes the given view.
func CanView(perms *Permissions, view View) bool {
	for _, allowed := range AllowedViews(perms) {
		if allowed == view {
			return true
		}
	}
	return false
}

package layout

import "github.com/tock-tools/tockloader-go/app"

// ReplaceMode selects how a new TAB app interacts with an installed
// app sharing its name.
type ReplaceMode int

const (
	// ReplaceYes removes any installed app whose name matches a new
	// one before placement, so the new app takes its place.
	ReplaceYes ReplaceMode = iota
	// ReplaceNo keeps duplicate names: both the installed and the new
	// app are placed side by side.
	ReplaceNo
	// ReplaceOnly installs a TAB app only if an installed app already
	// has that name (used for "update" semantics).
	ReplaceOnly
)

// MergePolicy controls how installed apps and incoming TAB apps are
// combined before placement.
type MergePolicy struct {
	Replace ReplaceMode

	// Erase deletes every non-sticky installed app before merging in
	// the new TAB apps.
	Erase bool

	// Force allows Erase, ReplaceYes and ReplaceOnly to remove sticky
	// apps, which are otherwise left in place regardless of policy.
	Force bool
}

// Merge combines installed apps with incoming TAB apps under policy,
// returning the ordered list placement should operate on.
func Merge(installed []app.App, incoming []*app.TabApp, policy MergePolicy) []app.App {
	kept := make([]app.App, 0, len(installed))
	for _, a := range installed {
		if a.IsPadding() {
			continue // padding is regenerated fresh by placement
		}
		if policy.Erase && (!app.IsSticky(a) || policy.Force) {
			continue
		}
		kept = append(kept, a)
	}

	installedNames := map[string]bool{}
	for _, a := range kept {
		installedNames[a.Name()] = true
	}

	var result []app.App

	switch policy.Replace {
	case ReplaceOnly:
		for _, a := range kept {
			if !hasIncomingName(incoming, a.Name()) || (app.IsSticky(a) && !policy.Force) {
				result = append(result, a)
			}
		}
		for _, a := range incoming {
			if installedNames[a.Name()] {
				result = append(result, a)
			}
		}

	case ReplaceYes:
		for _, a := range kept {
			if hasIncomingName(incoming, a.Name()) && (!app.IsSticky(a) || policy.Force) {
				continue
			}
			result = append(result, a)
		}
		result = append(result, toAppSlice(incoming)...)

	default: // ReplaceNo
		result = append(result, kept...)
		result = append(result, toAppSlice(incoming)...)
	}

	return result
}

func hasIncomingName(incoming []*app.TabApp, name string) bool {
	for _, a := range incoming {
		if a.Name() == name {
			return true
		}
	}
	return false
}

func toAppSlice(tabApps []*app.TabApp) []app.App {
	out := make([]app.App, len(tabApps))
	for i, a := range tabApps {
		out[i] = a
	}
	return out
}

package rules

// Observation captures what the compositor reports about a surface at
// configure time. Either field may be empty when the application did not
// declare it.
type Observation struct {
	AppID string
	Title string
}

// Observe builds an observation from raw surface attributes. Applications
// that declare no app id fall back to the title as a synthetic identifier;
// the second return reports whether that fallback was taken so the caller
// can emit a diagnostic.
func Observe(appID, title string) (Observation, bool) {
	fallback := false
	if appID == "" && title != "" {
		appID = title
		fallback = true
	}
	return Observation{AppID: appID, Title: title}, fallback
}

// Match scans the store in configuration order and returns the first rule
// whose present patterns all match the observation exactly, or nil. A nil
// pattern is a wildcard; a present pattern never matches an absent attribute.
func (s *Store) Match(obs Observation) *Rule {
	for _, rule := range s.rules {
		if matchAttribute(rule.AppID, obs.AppID) && matchAttribute(rule.Title, obs.Title) {
			return rule
		}
	}
	return nil
}

func matchAttribute(pattern *string, value string) bool {
	if pattern == nil {
		return true
	}
	return value != "" && *pattern == value
}

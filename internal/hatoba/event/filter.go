package event

import "strings"

// Filter restricts records to allow-listed chats and users. An empty list
// leaves its dimension unfiltered.
type Filter struct {
	ChatIDs []string
	UserIDs []string
}

// ParseIDList splits a comma-separated id list, trimming entries and dropping
// blanks.
func ParseIDList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NewFilter builds a Filter from the raw comma-separated settings.
func NewFilter(chatIDs, userIDs string) Filter {
	return Filter{ChatIDs: ParseIDList(chatIDs), UserIDs: ParseIDList(userIDs)}
}

// Allow reports whether id passes both dimensions. A dimension whose id could
// not be resolved passes: there is nothing to filter on.
func (f Filter) Allow(id Identity) bool {
	return allowDimension(f.ChatIDs, id.ChatID()) && allowDimension(f.UserIDs, id.UserID())
}

// Active reports whether any dimension is restricted.
func (f Filter) Active() bool {
	return len(f.ChatIDs) > 0 || len(f.UserIDs) > 0
}

func allowDimension(list []string, id ID) bool {
	if len(list) == 0 || id.IsZero() {
		return true
	}
	want := id.String()
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

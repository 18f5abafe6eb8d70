package newsletter

// disposableDomains are throwaway-mail providers we refuse to subscribe.
// Kept small on purpose; the list covers the domains actually seen in
// signup abuse, not every provider in existence.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"discard.email":     {},
	"dispostable.com":   {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"maildrop.cc":       {},
	"sharklasers.com":   {},
	"spam4.me":          {},
	"temp-mail.org":     {},
	"tempmail.dev":      {},
	"throwawaymail.com": {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

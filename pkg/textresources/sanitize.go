package textresources

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize strips markup that is unsafe to show in form text. Basic
// formatting and links survive; scripts, handlers and styles do not.
func Sanitize(raw string) string {
	if !strings.ContainsAny(raw, "<>&\"'") {
		return raw
	}
	return textSanitizer().Sanitize(raw)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		policy.AllowElements("span", "br")
		policy.AllowAttrs("class").OnElements("span", "p", "div")
		textPolicy = policy
	})
	return textPolicy
}

package parser

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// classNames admits plain class lists such as "hljs language-go".
var classNames = regexp.MustCompile(`^[\w\s+#.-]+$`)

func sanitizePolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		// Keep the class tokens the code-language lookup reads.
		p.AllowAttrs("class").Matching(classNames).OnElements("pre", "code")
		policy = p
	})
	return policy
}

// sanitize strips scripts, event handlers and unknown markup while keeping
// the structural elements segmentation recognizes.
func sanitize(src []byte) []byte {
	return sanitizePolicy().SanitizeBytes(src)
}

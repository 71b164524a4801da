// Package exam implements the live exam session: answer store, countdown,
// integrity monitoring, recovery of unfinished sessions, scoring and the
// one-shot finalization that produces a QuizResult.
package exam

import (
	"strings"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// SessionKeyPrefix namespaces session records in shared storage.
const SessionKeyPrefix = "cbt_session_"

// DeriveSessionKey maps a student identity to the storage key of its session
// record. Only name, class and token take part, so two students sharing all
// three resolve to the same key.
func DeriveSessionKey(id model.StudentIdentity) string {
	var b strings.Builder
	b.WriteString(SessionKeyPrefix)
	writeAlnum(&b, id.Name)
	writeAlnum(&b, id.ClassName)
	writeAlnum(&b, id.Token)
	return b.String()
}

func writeAlnum(b *strings.Builder, s string) {
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
}

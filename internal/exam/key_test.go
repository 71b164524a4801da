package exam

import (
	"testing"

	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDeriveSessionKey(t *testing.T) {
	a := model.StudentIdentity{Name: "Ana", ClassName: "6A", Token: "MATH1"}
	b := model.StudentIdentity{Name: "Ana", ClassName: "6A", Token: "MATH2"}

	assert.Equal(t, "cbt_session_ana6amath1", DeriveSessionKey(a))
	assert.Equal(t, DeriveSessionKey(a), DeriveSessionKey(a))
	assert.NotEqual(t, DeriveSessionKey(a), DeriveSessionKey(b))
}

func TestDeriveSessionKey_Normalizes(t *testing.T) {
	id := model.StudentIdentity{Name: "  Siti  Nur'aini ", ClassName: "6-A", Token: "math-1", School: "ignored"}
	assert.Equal(t, "cbt_session_sitinuraini6amath1", DeriveSessionKey(id))

	other := id
	other.School = "another school"
	other.BirthDate = "2014-05-01"
	assert.Equal(t, DeriveSessionKey(id), DeriveSessionKey(other))
}

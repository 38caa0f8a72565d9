package auth

import (
	"errors"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type stubClient struct {
	claims *casdoorsdk.Claims
	err    error
}

func (s stubClient) ParseJwtToken(string) (*casdoorsdk.Claims, error) {
	return s.claims, s.err
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		name string
		user casdoorsdk.User
		want models.UserRole
	}{
		{"plain user", casdoorsdk.User{Id: "u1"}, models.RoleStudent},
		{"admin flag", casdoorsdk.User{Id: "u1", IsAdmin: true}, models.RoleAdmin},
		{"teacher role", casdoorsdk.User{Id: "u1", Roles: []*casdoorsdk.Role{{Name: "Teacher"}}}, models.RoleTeacher},
		{"admin role wins", casdoorsdk.User{Id: "u1", Roles: []*casdoorsdk.Role{{Name: "teacher"}, {Name: "admin"}}}, models.RoleAdmin},
		{"user type", casdoorsdk.User{Id: "u1", Type: "teacher"}, models.RoleTeacher},
		{"unknown type", casdoorsdk.User{Id: "u1", Type: "normal-user"}, models.RoleStudent},
		{"nil role entry", casdoorsdk.User{Id: "u1", Roles: []*casdoorsdk.Role{nil}}, models.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoleOf(&tt.user))
		})
	}
}

func TestCasdoorParser_ParseToken(t *testing.T) {
	claims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "student-42", Type: "student"}}
	p := &CasdoorParser{client: stubClient{claims: claims}}

	actor, err := p.ParseToken("  token ")
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "student-42", Role: models.RoleStudent}, actor)

	_, err = p.ParseToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	p = &CasdoorParser{client: stubClient{err: errors.New("signature is invalid")}}
	_, err = p.ParseToken("token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	p = &CasdoorParser{client: stubClient{claims: &casdoorsdk.Claims{}}}
	_, err = p.ParseToken("token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewCasdoorParser_RequiresEndpoint(t *testing.T) {
	_, err := NewCasdoorParser(config.CasdoorConfig{Certificate: "cert"})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer  "} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, ErrMissingToken, header)
	}
}

func TestStaticParser(t *testing.T) {
	p := StaticParser{"t1": {ID: "teacher-1", Role: models.RoleTeacher}}

	actor, err := p.ParseToken("t1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, actor.Role)

	_, err = p.ParseToken("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

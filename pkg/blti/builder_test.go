package blti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomParameters(t *testing.T) {
	got := ParseCustomParameters("foo=bar;baz = qux\nempty=")
	require.Len(t, got, 2)
	assert.Equal(t, [2]string{"foo", "bar"}, got[0])
	assert.Equal(t, [2]string{"baz", "qux"}, got[1])
}

func TestParseCustomParametersSkipsBadPairs(t *testing.T) {
	cases := map[string]int{
		"":                 0,
		"nodelimiter":      0,
		"=value":           0,
		"key=":             0,
		"key=  ":           0,
		"bad-key=v":        0, // invalid chars skip the pair, not rename it
		"Weird Key=v":      0,
		"ok_1=v;bad.key=w": 1,
		"A=1":              1, // case-folded key
	}
	for in, n := range cases {
		assert.Len(t, ParseCustomParameters(in), n, "input %q", in)
	}

	got := ParseCustomParameters("A=1")
	assert.Equal(t, "a", got[0][0])
}

func TestBuildLaunchBasics(t *testing.T) {
	pc := PlacementConfig{
		LaunchURL: "https://tool.example.com/launch",
		PageTitle: "My Page",
		ToolTitle: "My Tool",
		Custom:    "section=101",
	}
	user := UserInfo{ID: "u-1", GivenName: "Ada", FamilyName: "Lovelace", DisplayName: "Ada Lovelace", Email: "ada@example.com"}
	ctx := ContextInfo{ID: "site-1", Type: "project", Title: "Site One", Label: "S1"}
	org := OrgInfo{GUID: "lms.example.com", Name: "Example LMS"}

	p, launchURL, err := BuildLaunch("rl-1", pc, user, ctx, "Learner", org)
	require.NoError(t, err)
	assert.Equal(t, "https://tool.example.com/launch", launchURL)

	assert.Equal(t, MessageTypeLaunch, p.Get(ParamMessageType))
	assert.Equal(t, VersionLTI1, p.Get(ParamVersion))
	assert.Equal(t, "rl-1", p.Get(ParamResourceLinkID))
	assert.Equal(t, "u-1", p.Get(ParamUserID))
	assert.Equal(t, "Learner", p.Get(ParamRoles))
	assert.Equal(t, "site-1", p.Get(ParamContextID))
	assert.Equal(t, "101", p.Get("custom_section"))
	assert.Equal(t, "lms.example.com", p.Get(ParamInstanceGUID))

	// Name and email withheld without the release flags.
	assert.False(t, p.Has(ParamPersonNameFull))
	assert.False(t, p.Has(ParamPersonEmail))
	// "project" is not course-like.
	assert.False(t, p.Has(ParamContextType))
}

func TestBuildLaunchReleaseFlags(t *testing.T) {
	pc := PlacementConfig{LaunchURL: "https://tool.example.com/l", ReleaseName: true, ReleaseEmail: true}
	user := UserInfo{ID: "u-1", GivenName: "Ada", FamilyName: "Lovelace", DisplayName: "Ada Lovelace", Email: "ada@example.com", SourcedID: "ada"}

	p, _, err := BuildLaunch("rl-1", pc, user, ContextInfo{}, "Learner", OrgInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Get(ParamPersonNameGiven))
	assert.Equal(t, "Lovelace", p.Get(ParamPersonNameFamily))
	assert.Equal(t, "Ada Lovelace", p.Get(ParamPersonNameFull))
	assert.Equal(t, "ada@example.com", p.Get(ParamPersonEmail))
	assert.Equal(t, "ada", p.Get(ParamPersonSourcedID))
}

func TestBuildLaunchCourseContextType(t *testing.T) {
	pc := PlacementConfig{LaunchURL: "https://tool.example.com/l"}
	ctx := ContextInfo{ID: "c1", Type: "CourseSite"}

	p, _, err := BuildLaunch("rl-1", pc, UserInfo{}, ctx, "Learner", OrgInfo{})
	require.NoError(t, err)
	assert.Equal(t, ContextTypeCourseOffering, p.Get(ParamContextType))
}

func TestBuildLaunchSecureURLWins(t *testing.T) {
	pc := PlacementConfig{
		LaunchURL:       "http://tool.example.com/launch",
		SecureLaunchURL: "https://tool.example.com/launch",
	}
	_, launchURL, err := BuildLaunch("rl-1", pc, UserInfo{}, ContextInfo{}, "Learner", OrgInfo{})
	require.NoError(t, err)
	assert.Equal(t, "https://tool.example.com/launch", launchURL)
}

func TestBuildLaunchNotConfigured(t *testing.T) {
	_, _, err := BuildLaunch("rl-1", PlacementConfig{}, UserInfo{}, ContextInfo{}, "Learner", OrgInfo{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPayloadSanitizesValues(t *testing.T) {
	p := NewPayload()
	p.Set("a", "<script>alert(1)</script>plain")
	p.Set("b", "<b>bold</b>")
	p.Set("c", "   ")
	p.Set("d", "<script>only</script>")

	assert.Equal(t, "plain", p.Get("a"))
	assert.Equal(t, "bold", p.Get("b"))
	// Values that sanitize to empty are dropped, never stored empty.
	assert.False(t, p.Has("c"))
	assert.False(t, p.Has("d"))
}

func TestPayloadKeepsInsertionOrder(t *testing.T) {
	p := NewPayload()
	p.Set("z", "1")
	p.Set("a", "2")
	p.Set("m", "3")
	p.Set("z", "updated") // replaces in place, no reorder

	assert.Equal(t, []string{"z", "a", "m"}, p.Keys())
	assert.Equal(t, "updated", p.Get("z"))
}

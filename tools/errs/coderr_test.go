package errs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeErrorJSONShape(t *testing.T) {
	e := NewCodeError(400, "Missing fields: Name", "Name")
	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"statusCode":400,"status":"error","message":"Missing fields: Name","errors":["Name"]}`,
		string(data))
}

func TestWithDetailCopies(t *testing.T) {
	base := NewCodeError(404, "not found")
	detailed := base.WithDetail("conversation 123")

	require.Empty(t, base.Detail, "shared error values must stay untouched")
	require.Equal(t, "conversation 123", detailed.Detail)
	require.Contains(t, detailed.Error(), "conversation 123")

	twice := detailed.WithDetail("second")
	require.Equal(t, "conversation 123, second", twice.Detail)
}

func TestWrapKeepsNil(t *testing.T) {
	require.NoError(t, Wrap(nil))
	require.NoError(t, WrapMsg(nil, "context"))
}

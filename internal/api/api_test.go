package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_SuccessIsDerived(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{400, false},
		{500, false},
	}
	for _, tt := range tests {
		e := Envelope[Empty]{StatusCode: tt.code}
		assert.Equal(t, tt.want, e.Success(), "code %d", tt.code)

		b, err := json.Marshal(e)
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Equal(t, tt.want, raw["success"], "code %d", tt.code)
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	b, err := json.Marshal(Envelope[LoginResponse]{StatusCode: 400, Message: "Invalid credentials"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":400,"message":"Invalid credentials","data":null,"success":false}`, string(b))

	b, err = json.Marshal(Envelope[Empty]{StatusCode: 200, Message: "ok", Data: &Empty{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"message":"ok","data":{},"success":true}`, string(b))

	b, err = json.Marshal(Envelope[Empty]{StatusCode: 400, Message: "bad", Errors: []string{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":400,"message":"bad","data":null,"errors":["a","b"],"success":false}`, string(b))
}

func TestEnvelope_IncomingSuccessIgnored(t *testing.T) {
	var e Envelope[UserInfo]
	require.NoError(t, json.Unmarshal([]byte(`{"statusCode":500,"message":"x","data":null,"success":true}`), &e))
	assert.False(t, e.Success())
	assert.Nil(t, e.Data)
}

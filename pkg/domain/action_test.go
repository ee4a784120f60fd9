package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawOption_Option(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawOption
		want    Action
		wantErr string
	}{
		{name: "next", raw: RawOption{Text: "Voltar", Next: "start"}, want: Next{NodeID: "start"}},
		{name: "link", raw: RawOption{Text: "ERP", Action: "link", URL: "https://erp"}, want: OpenLink{URL: "https://erp"}},
		{name: "goto", raw: RawOption{Text: "Eventos", Action: "goto", URL: "Txiling.html"}, want: Navigate{URL: "Txiling.html"}},
		{name: "whatsapp", raw: RawOption{Text: "WhatsApp", Action: "whatsapp", Message: "Olá"}, want: OpenMessaging{Text: "Olá"}},
		{name: "missing text", raw: RawOption{Next: "start"}, wantErr: "missing text"},
		{name: "both", raw: RawOption{Text: "x", Next: "a", Action: "link", URL: "u"}, wantErr: "both next and action"},
		{name: "neither", raw: RawOption{Text: "x"}, wantErr: "neither next nor action"},
		{name: "link without url", raw: RawOption{Text: "x", Action: "link"}, wantErr: "requires url"},
		{name: "whatsapp without message", raw: RawOption{Text: "x", Action: "whatsapp"}, wantErr: "requires message"},
		{name: "unknown", raw: RawOption{Text: "x", Action: "telegram"}, wantErr: "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := tt.raw.Option()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw.Text, opt.Label)
			assert.Equal(t, tt.want, opt.Action)
		})
	}
}

func TestOption_JSONUsesFlatForm(t *testing.T) {
	opt := Option{Label: "WhatsApp Direto", Action: OpenMessaging{Text: "Olá Ildino"}}

	data, err := json.Marshal(opt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"WhatsApp Direto","action":"whatsapp","message":"Olá Ildino"}`, string(data))

	var back Option
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, opt, back)

	err = json.Unmarshal([]byte(`{"text":"x","action":"fax"}`), &back)
	assert.Error(t, err)
}

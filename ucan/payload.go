package ucan

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const version = "0.9.1"

type headerModel struct {
	Alg string `json:"alg"`
	Ucv string `json:"ucv"`
	Typ string `json:"typ"`
}

type payloadModel struct {
	Iss string       `json:"iss"`
	Aud string       `json:"aud"`
	Att []Capability `json:"att"`
	Exp uint64       `json:"exp"`
	Nbf uint64       `json:"nbf,omitempty"`
	Prf string       `json:"prf,omitempty"`
	Jti string       `json:"jti"`
}

// FormatSignPayload produces the byte string a token signature is computed
// over: base64url(header) "." base64url(payload), the JWT container format.
// Signing and verification must derive the payload from the same token
// fields, so anything persisted in the token that affects validity is
// included here.
func FormatSignPayload(t Token, algorithm string) ([]byte, error) {
	hdr, err := formatPart(headerModel{Alg: algorithm, Ucv: version, Typ: "JWT"})
	if err != nil {
		return nil, fmt.Errorf("formatting header: %s", err)
	}
	pld, err := formatPart(payloadModel{
		Iss: t.Issuer.String(),
		Aud: t.Audience.String(),
		Att: t.Capabilities,
		Exp: t.ExpiresAt,
		Nbf: t.NotBefore,
		Prf: t.Proof,
		Jti: t.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting payload: %s", err)
	}
	return []byte(fmt.Sprintf("%s.%s", hdr, pld)), nil
}

func formatPart(v any) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

package http

import (
	"errors"
	"net/url"
	"testing"
)

const testBotToken = "123456:test-bot-token"

func signedInitData(t *testing.T, userJSON string) string {
	t.Helper()
	values := url.Values{}
	values.Set("auth_date", "1714000000")
	values.Set("query_id", "AAF9tq0aAAAAAH22rRrh4DBv")
	if userJSON != "" {
		values.Set("user", userJSON)
	}
	return SignInitData(values, testBotToken)
}

func TestVerifyInitData_Valid(t *testing.T) {
	initData := signedInitData(t, `{"id":99281932,"first_name":"Олена"}`)

	userID, err := VerifyInitData(initData, testBotToken)
	if err != nil {
		t.Fatalf("VerifyInitData: %v", err)
	}
	if userID != "99281932" {
		t.Errorf("userID = %q, want 99281932", userID)
	}
}

func TestVerifyInitData_WrongToken(t *testing.T) {
	initData := signedInitData(t, `{"id":1}`)

	if _, err := VerifyInitData(initData, "other:token"); !errors.Is(err, ErrInitDataHash) {
		t.Errorf("err = %v, want ErrInitDataHash", err)
	}
}

func TestVerifyInitData_Tampered(t *testing.T) {
	initData := signedInitData(t, `{"id":1}`)

	values, _ := url.ParseQuery(initData)
	values.Set("user", `{"id":2}`)

	if _, err := VerifyInitData(values.Encode(), testBotToken); !errors.Is(err, ErrInitDataHash) {
		t.Errorf("err = %v, want ErrInitDataHash", err)
	}
}

func TestVerifyInitData_MissingPieces(t *testing.T) {
	tests := []struct {
		name     string
		initData string
		botToken string
		wantErr  error
	}{
		{"empty init data", "", testBotToken, ErrNoInitData},
		{"no bot token", "auth_date=1&hash=ab", "", ErrNoBotToken},
		{"no hash", "auth_date=1", testBotToken, ErrBadInitData},
		{"no user", signedInitData(t, ""), testBotToken, ErrInitDataNoUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyInitData(tt.initData, tt.botToken)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

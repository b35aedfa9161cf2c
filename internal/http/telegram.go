package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNoInitData     = errors.New("no telegram init data")
	ErrBadInitData    = errors.New("malformed telegram init data")
	ErrInitDataHash   = errors.New("telegram init data hash mismatch")
	ErrInitDataNoUser = errors.New("telegram init data has no user")
	ErrNoBotToken     = errors.New("bot token not configured")
)

// VerifyInitData checks the HMAC signature of a Telegram mini-app initData
// string and returns the embedded user id. The secret key is
// HMAC-SHA256("WebAppData", botToken) per the Telegram web-app contract.
func VerifyInitData(initData, botToken string) (string, error) {
	if initData == "" {
		return "", ErrNoInitData
	}
	if botToken == "" {
		return "", ErrNoBotToken
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadInitData, err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return "", fmt.Errorf("%w: missing hash", ErrBadInitData)
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return "", ErrInitDataHash
	}

	return userIDFromInitData(values)
}

func userIDFromInitData(values url.Values) (string, error) {
	raw := values.Get("user")
	if raw == "" {
		return "", ErrInitDataNoUser
	}
	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadInitData, err)
	}
	if user.ID == 0 {
		return "", ErrInitDataNoUser
	}
	return strconv.FormatInt(user.ID, 10), nil
}

// SignInitData produces a valid initData string for the given values. Used
// by tests to forge authenticated requests.
func SignInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))

	signed := url.Values{}
	for k := range values {
		signed[k] = values[k]
	}
	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}

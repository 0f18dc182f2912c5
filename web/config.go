// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package web is the Forerun frontend server. It holds no state of its own:
// every page is rendered from API responses, authenticated with the
// frontend's consumer or, for logged-in users, with the session token kept
// in a secure cookie. It also receives its own webhook callbacks and pushes
// them to browsers over websockets.
package web

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorilla/securecookie"
)

const cookieName = "ckie"

// Config is the frontend server's JSON configuration file.
type Config struct {
	// API server base URL, e.g. http://127.0.0.1:5011
	APIAddr string
	// the frontend's own consumer credentials; the api server creates the
	// consumer at startup so they always match
	APIKey    string
	APISecret string
	// where listeners can reach this server, used for the webhook endpoint
	// and feed links, e.g. https://forum.example.com
	PublicURL string

	CookieAuthKeyHexStr string
	CookieEncrKeyHexStr string

	AnalyticsCode string
}

// ReadConfig reads the configuration file and builds the cookie codec. When
// the cookie keys are invalid or missing it prints freshly generated ones,
// for convenience when setting up a new instance.
func ReadConfig(configFile string) (*Config, *securecookie.SecureCookie, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%s config file doesn't exist. Read readme.md for config instructions", configFile)
	}
	var config Config
	if err = json.Unmarshal(b, &config); err != nil {
		return nil, nil, err
	}

	cookieAuthKey, err := hex.DecodeString(config.CookieAuthKeyHexStr)
	if err != nil {
		return nil, nil, err
	}
	cookieEncrKey, err := hex.DecodeString(config.CookieEncrKeyHexStr)
	if err != nil {
		return nil, nil, err
	}
	cookieCodec := securecookie.New(cookieAuthKey, cookieEncrKey)
	// verify auth/encr keys are correct
	val := map[string]string{
		"foo": "bar",
	}
	if _, err = cookieCodec.Encode(cookieName, val); err != nil {
		// for convenience, if the auth/encr keys are not set,
		// generate valid, random value for them
		fmt.Printf("CookieAuthKeyHexStr and CookieEncrKeyHexStr are invalid or missing in %q\nYou can use the following random values:\n", configFile)
		auth := securecookie.GenerateRandomKey(32)
		encr := securecookie.GenerateRandomKey(32)
		fmt.Printf("CookieAuthKeyHexStr: %s\nCookieEncrKeyHexStr: %s\n", hex.EncodeToString(auth), hex.EncodeToString(encr))
		return nil, nil, err
	}
	return &config, cookieCodec, nil
}

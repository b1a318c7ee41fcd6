package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
)

// Manual smoke test for the auth flow against a locally running server:
// register, exchange the credential for a session cookie, then read /me.
func main() {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	email := os.Getenv("TEST_EMAIL")
	if email == "" {
		fmt.Println("Please set TEST_EMAIL (and optionally TEST_PASSWORD) for the smoke test account")
		return
	}
	password := os.Getenv("TEST_PASSWORD")
	if password == "" {
		password = "secret123"
	}

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	// Step 1: register (409 is fine if the account already exists)
	status, body := post(client, baseURL+"/api/auth/register", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": "Smoke Test",
	})
	fmt.Printf("register: %d %s\n", status, body)

	// Step 2: password sign-in for a fresh credential
	status, body = post(client, baseURL+"/api/auth/token", map[string]string{
		"email":    email,
		"password": password,
	})
	fmt.Printf("token: %d %s\n", status, body)
	if status != 200 {
		fmt.Println("\n❌ Sign-in failed, check the credentials.")
		return
	}

	var tokenResp struct {
		IDToken string `json:"idToken"`
	}
	json.Unmarshal([]byte(body), &tokenResp)

	// Step 3: exchange the credential for the session cookie
	status, body = post(client, baseURL+"/api/auth/login", map[string]string{
		"idToken": tokenResp.IDToken,
	})
	fmt.Printf("login: %d %s\n", status, body)

	// Step 4: the cookie jar should now carry the session
	resp, err := client.Get(baseURL + "/api/auth/me")
	if err != nil {
		fmt.Printf("Error calling /me: %v\n", err)
		return
	}
	defer resp.Body.Close()
	meBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("me: %d %s\n", resp.StatusCode, meBody)

	if resp.StatusCode == 200 {
		fmt.Println("\n✅ Session cookie flow is working correctly.")
	} else {
		fmt.Println("\n❌ Session check failed. The cookie exchange is broken.")
	}
}

func post(client *http.Client, url string, payload map[string]string) (int, string) {
	jsonData, _ := json.Marshal(payload)
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		fmt.Printf("Error sending request to %s: %v\n", url, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

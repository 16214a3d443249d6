// Command smoke drives a running arkiva-api instance end to end: it
// registers a throwaway member, uploads a document and downloads it back.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("ARKIVA_API_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 10 * time.Second}

	email := fmt.Sprintf("smoke-%d@arkiva.local", rand.Int())
	secret := fmt.Sprintf("smoke-secret-%d", rand.Int())

	var session struct {
		Token    string `json:"token"`
		Identity struct {
			ID string `json:"id"`
		} `json:"identity"`
	}
	resp := postJSON(client, base+"/v1/auth/register", map[string]any{
		"name": "Smoke Test", "email": email, "secret": secret,
	}, "")
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("register: status %d", resp.StatusCode)
	}
	decodeInto(resp, &session)

	resp = postJSON(client, base+"/v1/auth/login", map[string]any{
		"email": email, "secret": secret,
	}, "")
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("login: status %d", resp.StatusCode)
	}
	decodeInto(resp, &session)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", fmt.Sprintf("smoke-%d", rand.Int()))
	_ = mw.WriteField("author", "Smoke Test")
	fw, err := mw.CreateFormFile("file", "smoke.pdf")
	if err != nil {
		log.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 smoke"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, base+"/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = client.Do(req)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("upload: status %d", resp.StatusCode)
	}
	var doc struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		UploadedBy string `json:"uploaded_by"`
	}
	decodeInto(resp, &doc)
	if doc.Status != "draft" {
		log.Fatalf("unexpected status %q after upload", doc.Status)
	}
	if doc.UploadedBy != session.Identity.ID {
		log.Fatalf("ownership mismatch: %s vs %s", doc.UploadedBy, session.Identity.ID)
	}

	req, _ = http.NewRequest(http.MethodGet, base+"/v1/documents/"+doc.ID+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = client.Do(req)
	if err != nil {
		log.Fatalf("download: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("download: status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(body) == 0 {
		log.Fatal("download: empty body")
	}

	fmt.Printf("✅ arkiva-api smoke test passed: identity=%s document=%s\n", session.Identity.ID, doc.ID)
}

func postJSON(client *http.Client, url string, body any, token string) *http.Response {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeInto(resp *http.Response, v any) {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		log.Fatalf("decode: %v", err)
	}
}

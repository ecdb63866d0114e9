package pinata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bjeschke/solanahub/internal/domain"
)

func TestPublish(t *testing.T) {
	var gotMetadata metadataDocument

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("pinata_api_key") != "key" || r.Header.Get("pinata_secret_api_key") != "secret" {
			t.Error("missing API key headers")
		}

		switch r.URL.Path {
		case "/pinning/pinFileToIPFS":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			defer file.Close()
			if header.Filename != "logo.png" {
				t.Errorf("filename = %s, want logo.png", header.Filename)
			}
			json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmImageHash"})

		case "/pinning/pinJSONToIPFS":
			if err := json.NewDecoder(r.Body).Decode(&gotMetadata); err != nil {
				t.Fatalf("decode metadata: %v", err)
			}
			json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmMetaHash"})

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient("key", "secret", WithBaseURL(server.URL))

	bundle, err := client.Publish(context.Background(), "logo.png", strings.NewReader("png-bytes"), TokenAsset{
		Name:        "Example Token",
		Symbol:      "EXT",
		Description: "An example token",
		Decimals:    6,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if bundle.ImageURI != "https://gateway.pinata.cloud/ipfs/QmImageHash" {
		t.Errorf("image URI = %s", bundle.ImageURI)
	}
	if bundle.MetadataURI != "https://gateway.pinata.cloud/ipfs/QmMetaHash" {
		t.Errorf("metadata URI = %s", bundle.MetadataURI)
	}

	if gotMetadata.Name != "Example Token" || gotMetadata.Symbol != "EXT" {
		t.Errorf("metadata = %+v", gotMetadata)
	}
	if gotMetadata.Image != bundle.ImageURI {
		t.Errorf("metadata image = %s, want %s", gotMetadata.Image, bundle.ImageURI)
	}
	if len(gotMetadata.Attributes) != 1 || gotMetadata.Attributes[0].TraitType != "decimals" || gotMetadata.Attributes[0].Value != "6" {
		t.Errorf("attributes = %+v", gotMetadata.Attributes)
	}
}

func TestPublishImageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad", "bad", WithBaseURL(server.URL))

	_, err := client.Publish(context.Background(), "logo.png", strings.NewReader("x"), TokenAsset{Name: "T"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrPublish) {
		t.Errorf("error = %v, want ErrPublish", err)
	}
}

func TestPublishMetadataFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pinning/pinFileToIPFS" {
			json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmImageHash"})
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("key", "secret", WithBaseURL(server.URL))

	_, err := client.Publish(context.Background(), "logo.png", strings.NewReader("x"), TokenAsset{Name: "T"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrPublish) {
		t.Errorf("error = %v, want ErrPublish", err)
	}
	if !strings.Contains(err.Error(), "pin metadata") {
		t.Errorf("error should identify the metadata step: %v", err)
	}
}

package cron

import (
	"context"
	"testing"
)

func TestValidateWebhookURL_RejectsNonHTTPScheme(t *testing.T) {
	if _, err := validateWebhookURL(context.Background(), "ftp://example.com/hook"); err == nil {
		t.Fatal("expected rejection of a non-http(s) scheme")
	}
}

func TestValidateWebhookURL_RejectsInternalHostSuffix(t *testing.T) {
	cases := []string{
		"http://svc.local/hook",
		"http://box.localhost/hook",
		"http://api.internal/hook",
	}
	for _, raw := range cases {
		if _, err := validateWebhookURL(context.Background(), raw); err == nil {
			t.Errorf("expected rejection of %q", raw)
		}
	}
}

func TestValidateWebhookURL_RejectsLiteralPrivateIPs(t *testing.T) {
	cases := []string{
		"http://127.0.0.1/hook",
		"http://10.0.0.5/hook",
		"http://172.16.0.5/hook",
		"http://192.168.1.1/hook",
		"http://169.254.1.1/hook",
		"http://100.64.0.1/hook",
		"http://0.0.0.0/hook",
	}
	for _, raw := range cases {
		if _, err := validateWebhookURL(context.Background(), raw); err == nil {
			t.Errorf("expected rejection of private/unsafe address %q", raw)
		}
	}
}

func TestValidateWebhookURL_AcceptsPublicLiteralIP(t *testing.T) {
	// 8.8.8.8 is a public address with no loopback/private/link-local status.
	u, err := validateWebhookURL(context.Background(), "https://8.8.8.8/hook")
	if err != nil {
		t.Fatalf("unexpected rejection of a public address: %v", err)
	}
	if u.Scheme != "https" {
		t.Errorf("expected scheme preserved, got %q", u.Scheme)
	}
}

func TestValidateWebhookURL_RejectsMissingHost(t *testing.T) {
	if _, err := validateWebhookURL(context.Background(), "http:///hook"); err == nil {
		t.Fatal("expected rejection of a URL with no host")
	}
}

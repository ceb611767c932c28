package netguard

import "testing"

func findKind(vs []OutboundViolation, kind string) bool {
	for _, v := range vs {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

func TestScanOutboundSSN(t *testing.T) {
	vs := ScanOutboundText("my ssn is 123-45-6789 thanks")
	if !findKind(vs, "ssn") {
		t.Errorf("expected ssn violation, got %v", vs)
	}
}

func TestScanOutboundLocalPath(t *testing.T) {
	vs := ScanOutboundText("config lives at /etc/steward/config.yaml")
	if !findKind(vs, "local_path") {
		t.Errorf("expected local_path violation, got %v", vs)
	}
}

func TestScanOutboundCredentialAssignment(t *testing.T) {
	vs := ScanOutboundText("set password=correcthorse and retry")
	if !findKind(vs, "credential_assignment") {
		t.Errorf("expected credential_assignment violation, got %v", vs)
	}
}

func TestScanOutboundProviderKey(t *testing.T) {
	vs := ScanOutboundText("use gsk_abcdefghijklmnopqrstuvwx for the call")
	if !findKind(vs, "provider_api_key") {
		t.Errorf("expected provider_api_key violation, got %v", vs)
	}
}

func TestScanOutboundLuhnValidCard(t *testing.T) {
	vs := ScanOutboundText("card: 4111111111111111")
	if !findKind(vs, "card_number") {
		t.Errorf("expected card_number violation, got %v", vs)
	}
}

func TestScanOutboundLuhnInvalidNotFlagged(t *testing.T) {
	vs := ScanOutboundText("order ref 4111111111111112")
	if findKind(vs, "card_number") {
		t.Errorf("Luhn-invalid digits flagged: %v", vs)
	}
}

func TestScanOutboundGroupedCard(t *testing.T) {
	vs := ScanOutboundText("pay with 4111 1111 1111 1111 today")
	if !findKind(vs, "card_number") {
		t.Errorf("expected grouped card detection, got %v", vs)
	}
}

func TestScanOutboundCleanText(t *testing.T) {
	vs := ScanOutboundText("summarize the quarterly report for the team")
	if len(vs) != 0 {
		t.Errorf("expected no violations, got %v", vs)
	}
}

func TestLuhn(t *testing.T) {
	if !luhnValid("4111111111111111") {
		t.Error("4111111111111111 should pass Luhn")
	}
	if luhnValid("4111111111111112") {
		t.Error("4111111111111112 should fail Luhn")
	}
}

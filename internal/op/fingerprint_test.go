package op

import "testing"

func TestFingerprint_Stable(t *testing.T) {
	env := Envelope{
		System:    SystemCurrency,
		Payload:   Mint{CurrencyID: "gold", To: "alice", Amount: 1000, MinterID: "treasury"},
		Timestamp: 1700000000000,
	}

	first, ok := Fingerprint(env)
	if !ok {
		t.Fatal("Fingerprint() not ok")
	}
	second, ok := Fingerprint(env)
	if !ok {
		t.Fatal("Fingerprint() not ok")
	}
	if first != second {
		t.Errorf("fingerprint not stable: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(first))
	}
}

func TestFingerprint_DistinguishesOperations(t *testing.T) {
	base := Envelope{
		System:    SystemCurrency,
		Payload:   Mint{CurrencyID: "gold", To: "alice", Amount: 1000},
		Timestamp: 1,
	}

	differentAmount := base
	differentAmount.Payload = Mint{CurrencyID: "gold", To: "alice", Amount: 999}

	differentTime := base
	differentTime.Timestamp = 2

	k1, _ := Fingerprint(base)
	k2, _ := Fingerprint(differentAmount)
	k3, _ := Fingerprint(differentTime)

	if k1 == k2 {
		t.Error("different amounts produced the same key")
	}
	if k1 == k3 {
		t.Error("different timestamps produced the same key")
	}
}

func TestFingerprint_NonceWidensKey(t *testing.T) {
	// Two genuinely distinct operations in the same millisecond with
	// identical fields collide on the field-derived key. Nonces keep them
	// apart.
	a := Envelope{
		System:    SystemCurrency,
		Payload:   Transfer{CurrencyID: "gold", From: "a", To: "b", Amount: 5},
		Timestamp: 1,
		Nonce:     "n-1",
	}
	b := a
	b.Nonce = "n-2"

	ka, _ := Fingerprint(a)
	kb, _ := Fingerprint(b)
	if ka == kb {
		t.Error("distinct nonces produced the same key")
	}

	// Without nonces they are the same logical operation.
	a.Nonce = ""
	b.Nonce = ""
	ka, _ = Fingerprint(a)
	kb, _ = Fingerprint(b)
	if ka != kb {
		t.Error("identical operations without nonces produced different keys")
	}
}

func TestFingerprint_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
	}{
		{"nil payload", Envelope{System: SystemCurrency, Timestamp: 1}},
		{"mint without address", Envelope{System: SystemCurrency, Payload: Mint{CurrencyID: "gold"}, Timestamp: 1}},
		{"transfer without currency", Envelope{System: SystemCurrency, Payload: Transfer{From: "a", To: "b"}, Timestamp: 1}},
		{"register without device key", Envelope{System: SystemIdentity, Payload: RegisterDevice{MasterPublicKey: "aa"}, Timestamp: 1}},
		{"room without creator", Envelope{System: SystemPermission, Payload: CreateRoom{RoomID: "r"}, Timestamp: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Fingerprint(tc.env); ok {
				t.Error("Fingerprint() ok for envelope with missing fields")
			}
		})
	}
}

func TestFingerprint_SystemSeparation(t *testing.T) {
	// The same identifying fields under different systems must never
	// collide.
	mint := Envelope{
		System:    SystemCurrency,
		Payload:   Mint{CurrencyID: "gold", To: "alice", Amount: 1},
		Timestamp: 1,
	}
	res := Envelope{
		System:    SystemResource,
		Payload:   MintResource{ResourceID: "gold", To: "alice", Amount: 1},
		Timestamp: 1,
	}

	k1, _ := Fingerprint(mint)
	k2, _ := Fingerprint(res)
	if k1 == k2 {
		t.Error("currency and resource mints collided")
	}
}

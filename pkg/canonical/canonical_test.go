package canonical

import (
	"math/rand"
	"testing"
)

func TestInterface(t *testing.T) {
	cases := map[string]string{
		"Ten-GigabitEthernet1/0/1": "XGE1/0/1",
		"TenGigabitEthernet1/0/1":  "XGE1/0/1",
		"Te1/0/1":                  "XGE1/0/1",
		"te1/0/1":                  "XGE1/0/1",
		"GigabitEthernet1/0/24":    "GE1/0/24",
		"Gi1/0/24":                 "GE1/0/24",
		"HundredGigE1/0/49":        "HGE1/0/49",
		"Hu1/0/49":                 "HGE1/0/49",
		"FortyGigE1/0/53":          "FGE1/0/53",
		"TwentyFiveGigE1/0/1":      "25GE1/0/1",
		"Ethernet1/1":              "Eth1/1",
		"Port-Channel10":           "Po10",
		"Port-channel10":           "Po10",
		"Po10":                     "Po10",
		"Bridge-Aggregation10":     "BAGG10",
		"BAGG10":                   "BAGG10",
		"Vlan-interface100":        "Vlan100",
		"Vlan100":                  "Vlan100",
		"Loopback0":                "Lo0",
		"mgmt0":                    "Mgmt0",
		" GE1/0/1 ":                "GE1/0/1",
		"unknown-if-3":             "unknown-if-3",
	}
	for in, want := range cases {
		if got := Interface(in); got != want {
			t.Errorf("Interface(%q) = %q, want %q", in, got, want)
		}
	}
}

// Canonical form depends only on the prefix class and is a fixed point.
func TestInterfaceIdempotent(t *testing.T) {
	inputs := []string{
		"Ten-GigabitEthernet1/0/1", "Gi1/0/24", "Ethernet1/1",
		"Port-Channel10", "Bridge-Aggregation2", "Vlan-interface100",
		"XGE1/0/1", "weird0/0",
	}
	for _, in := range inputs {
		once := Interface(in)
		if twice := Interface(once); twice != once {
			t.Errorf("Interface not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestPortChannelKeyCollides(t *testing.T) {
	spellings := []string{"Port-Channel1", "Port-channel1", "Po1", "Bridge-Aggregation1", "BAGG1"}
	for _, s := range spellings {
		if got := PortChannelKey(s); got != "Po1" {
			t.Errorf("PortChannelKey(%q) = %q, want Po1", s, got)
		}
	}
}

type fanItem struct {
	FanID  string  `json:"fan_id"`
	Status *string `json:"status"`
}

func strp(s string) *string { return &s }

// Hash must be invariant under any permutation of the input items.
func TestHashPermutationInvariant(t *testing.T) {
	items := []fanItem{
		{FanID: "Fan1", Status: strp("OK")},
		{FanID: "Fan2", Status: strp("ok")},
		{FanID: "Fan3", Status: nil},
		{FanID: "Fan4", Status: strp("Fault")},
	}
	want, err := Hash(items)
	if err != nil {
		t.Fatal(err)
	}
	if len(want) != 16 {
		t.Fatalf("hash length = %d, want 16", len(want))
	}
	for i := 0; i < 20; i++ {
		shuffled := make([]fanItem, len(items))
		copy(shuffled, items)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Hash(shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("hash changed under permutation: %q != %q", got, want)
		}
	}
}

func TestHashSensitivity(t *testing.T) {
	a := []fanItem{{FanID: "Fan1", Status: strp("OK")}}
	b := []fanItem{{FanID: "Fan1", Status: strp("Fault")}}
	ha, _ := Hash(a)
	hb, _ := Hash(b)
	if ha == hb {
		t.Error("different payloads produced the same hash")
	}

	withNull := []fanItem{{FanID: "Fan1", Status: nil}}
	hn, _ := Hash(withNull)
	if hn == ha {
		t.Error("null status hashed identically to a value")
	}
}

func TestHashFloatStability(t *testing.T) {
	type tx struct {
		TxPower *float64 `json:"tx_power"`
	}
	v := -3.1000000000000001
	h1, _ := Hash([]tx{{TxPower: &v}})
	w := -3.1
	h2, _ := Hash([]tx{{TxPower: &w}})
	if h1 != h2 {
		t.Error("equal float values hashed differently")
	}
}

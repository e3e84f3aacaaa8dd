package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBondingMode(t *testing.T) {
	tests := []struct {
		input   string
		want    BondingMode
		wantErr bool
	}{
		{"bonded", ModeBonded, false},
		{"  Bond ", ModeBonded, false},
		{"single-active", ModeSingleActive, false},
		{"single", ModeSingleActive, false},
		{"round-robin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBondingMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, got.Valid())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestConfigurationSnapshot_Immutable(t *testing.T) {
	entries := []MetricEntry{
		{Name: "eth0", Metric: 25, Known: true},
		{Name: "wlan0", Known: false},
	}
	snap := NewConfigurationSnapshot("snap-1", time.Unix(0, 0), entries)

	// 원본 슬라이스를 수정해도 스냅샷은 변하지 않아야 함
	entries[0].Metric = 999

	m, ok := snap.Metric("eth0")
	assert.True(t, ok)
	assert.Equal(t, 25, m)

	// 반환된 복사본을 수정해도 스냅샷은 변하지 않아야 함
	out := snap.Entries()
	out[0].Metric = 1
	m, _ = snap.Metric("eth0")
	assert.Equal(t, 25, m)

	_, ok = snap.Metric("wlan0")
	assert.False(t, ok, "unknown metric must not be restorable")
	assert.True(t, snap.Covers("wlan0"))
	assert.False(t, snap.Covers("eth9"))
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, "snap-1", snap.ID())
}

func TestAddressInfo_HasQualifyingIPv4(t *testing.T) {
	assert.True(t, AddressInfo{Family: FamilyIPv4, Netmask: "255.255.255.0"}.HasQualifyingIPv4())
	assert.False(t, AddressInfo{Family: FamilyIPv4, Netmask: "0.0.0.0"}.HasQualifyingIPv4())
	assert.False(t, AddressInfo{Family: FamilyIPv4}.HasQualifyingIPv4())
	assert.False(t, AddressInfo{Family: FamilyIPv6, Netmask: "ffff:ffff::"}.HasQualifyingIPv4())
}

package entities

import (
	"errors"
	"strings"
)

// Interface는 호스트의 네트워크 어댑터를 나타내는 도메인 엔티티입니다
type Interface struct {
	Name      string
	IsActive  bool
	SentBytes uint64
	RecvBytes uint64
	Metric    int // 0 = 아직 조회하지 않음
	Index     int // 0 = 아직 조회하지 않음
}

// AddressFamily는 주소 체계를 나타냅니다
type AddressFamily int

const (
	FamilyIPv4 AddressFamily = 4
	FamilyIPv6 AddressFamily = 6
)

// AddressInfo는 인터페이스에 할당된 주소 항목입니다
type AddressInfo struct {
	Family  AddressFamily
	Address string
	Netmask string // dotted quad (IPv4) 또는 prefix 마스크 문자열
	Gateway string // 알 수 없으면 빈 문자열
}

// LinkInfo는 OS 열거 결과 한 건입니다 (name, isUp, sent, recv, addresses)
type LinkInfo struct {
	Name        string
	IsUp        bool
	IsLoopback  bool
	SentBytes   uint64
	RecvBytes   uint64
	HasCounters bool
	Addresses   []AddressInfo
}

var (
	ErrEmptyInterfaceName = errors.New("인터페이스 이름이 비어있음")
)

// Validate는 Interface의 유효성을 검증합니다
func (i *Interface) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyInterfaceName
	}
	return nil
}

// ToInterface는 열거 결과를 Interface 엔티티로 변환합니다
func (l LinkInfo) ToInterface() Interface {
	return Interface{
		Name:      l.Name,
		IsActive:  l.IsUp,
		SentBytes: l.SentBytes,
		RecvBytes: l.RecvBytes,
	}
}

// HasQualifyingIPv4 reports whether the address is an IPv4 entry with a non-trivial netmask.
func (a AddressInfo) HasQualifyingIPv4() bool {
	if a.Family != FamilyIPv4 {
		return false
	}
	return a.Netmask != "" && a.Netmask != "0.0.0.0"
}

package services

import (
	"strings"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/entities"
)

// InterfaceFilter는 가상/루프백 인터페이스를 걸러내는 도메인 서비스입니다
type InterfaceFilter struct {
	prefixes []string
	names    map[string]bool
}

// NewInterfaceFilter는 새로운 InterfaceFilter를 생성합니다.
// 접두사는 설정으로 바뀔 수 있지만 루프백 장치 이름은 항상 정확히 일치하는 경우 제외됩니다.
func NewInterfaceFilter(excludedPrefixes []string) *InterfaceFilter {
	prefixes := make([]string, 0, len(excludedPrefixes))
	for _, p := range excludedPrefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	names := make(map[string]bool, len(constants.LoopbackNames))
	for _, n := range constants.LoopbackNames {
		names[strings.ToLower(n)] = true
	}
	return &InterfaceFilter{prefixes: prefixes, names: names}
}

// IsExcluded는 이름이 루프백 장치 이름과 같거나 제외 접두사로 시작하는지 확인합니다 (대소문자 무시)
func (f *InterfaceFilter) IsExcluded(name string) bool {
	lower := strings.ToLower(name)
	if f.names[lower] {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Accept는 인벤토리에 포함할 링크인지 판단합니다
func (f *InterfaceFilter) Accept(link entities.LinkInfo) bool {
	return link.IsUp && !link.IsLoopback && link.Name != "" && !f.IsExcluded(link.Name)
}

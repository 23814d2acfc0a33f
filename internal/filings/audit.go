package filings

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const sectionRadius = 500

var (
	auditorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`외부감사인\s*[:：]\s*([^\n]+)`),
		regexp.MustCompile(`감사인\s*[:：]\s*([^\n]+)`),
		regexp.MustCompile(`감사법인\s*[:：]\s*([^\n]+)`),
		regexp.MustCompile(`회계법인\s*[:：]\s*([^\n]+)`),
	}
	majorAuditors = []string{
		"삼일회계법인", "삼정KPMG", "안진회계법인", "한영회계법인",
		"EY한영", "딜로이트", "대주회계법인", "대현회계법인",
	}
	standardPatterns = []*regexp.Regexp{
		regexp.MustCompile(`회계처리기준\s*[:：]\s*([^\n]+)`),
		regexp.MustCompile(`회계기준\s*[:：]\s*([^\n]+)`),
	}
	opinionLine    = regexp.MustCompile(`감사의견\s*[:：]\s*([^\n]+)`)
	opinionPhrase  = regexp.MustCompile(`(?s)감사의견.{0,200}?(부적정|한정|의견거절|적정)`)
	usefulLifeKeys = []string{"건물", "구축물", "기계장치", "차량운반구", "비품", "시설장치"}
	usefulLifeRE   = make(map[string]*regexp.Regexp, len(usefulLifeKeys))
	policyKeywords = []string{
		"수익인식", "재고자산평가", "외화환산", "충당부채",
		"금융상품", "리스", "퇴직급여", "법인세",
	}
	whitespace = regexp.MustCompile(`\s+`)
)

const (
	policyMinRunes     = 50
	policyExcerptRunes = 200
)

func init() {
	for _, asset := range usefulLifeKeys {
		usefulLifeRE[asset] = regexp.MustCompile(regexp.QuoteMeta(asset) + `\s*[:：]?\s*(\d+)\s*년`)
	}
}

// ExtractAuditInfo pulls auditor, accounting standard, opinion, depreciation
// method and useful lives out of an audit report document. Attributes that
// cannot be found are left empty.
func ExtractAuditInfo(r io.Reader) (AuditInfo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return AuditInfo{}, fmt.Errorf("filings: parse audit report: %w", err)
	}
	text := doc.Text()

	info := AuditInfo{
		Auditor:            extractAuditor(text),
		AccountingStandard: extractStandard(text),
		AuditOpinion:       extractOpinion(text),
	}
	if section := findSection(text, "감가상각", "유형자산"); section != "" {
		switch {
		case strings.Contains(section, "정액법"):
			info.DepreciationMethod = "정액법"
		case strings.Contains(section, "정률법"):
			info.DepreciationMethod = "정률법"
		default:
			info.DepreciationMethod = "기타"
		}
	}
	if section := findSection(text, "내용연수", "추정내용연수"); section != "" {
		for _, asset := range usefulLifeKeys {
			if m := usefulLifeRE[asset].FindStringSubmatch(section); m != nil {
				if info.UsefulLife == nil {
					info.UsefulLife = make(map[string]string)
				}
				info.UsefulLife[asset] = m[1] + "년"
			}
		}
	}
	info.SignificantPolicies = extractPolicies(text)
	return info, nil
}

// extractPolicies returns "keyword: excerpt" for every policy keyword whose
// surrounding section carries some content. The excerpt starts at the keyword.
func extractPolicies(text string) []string {
	var out []string
	for _, kw := range policyKeywords {
		section := findSection(text, kw)
		if utf8.RuneCountInString(section) <= policyMinRunes {
			continue
		}
		excerpt := strings.TrimSpace(whitespace.ReplaceAllString(section[strings.Index(section, kw):], " "))
		if r := []rune(excerpt); len(r) > policyExcerptRunes {
			excerpt = string(r[:policyExcerptRunes]) + "..."
		}
		out = append(out, kw+": "+excerpt)
	}
	return out
}

func extractAuditor(text string) string {
	for _, re := range auditorPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for _, name := range majorAuditors {
		if strings.Contains(text, name) {
			return name
		}
	}
	return ""
}

func extractStandard(text string) string {
	if containsAny(text, "K-IFRS", "한국채택국제회계기준", "KIFRS") {
		return "K-IFRS"
	}
	if containsAny(text, "K-GAAP", "일반기업회계기준", "KGAAP") {
		return "K-GAAP"
	}
	for _, re := range standardPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		switch value := m[1]; {
		case containsAny(value, "IFRS", "국제"):
			return "K-IFRS"
		case containsAny(value, "GAAP", "일반"):
			return "K-GAAP"
		}
	}
	return ""
}

func extractOpinion(text string) string {
	candidate := ""
	if m := opinionLine.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := opinionPhrase.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	switch {
	case candidate == "":
		return ""
	case strings.Contains(candidate, "부적정"):
		return "부적정"
	case strings.Contains(candidate, "한정"):
		return "한정"
	case strings.Contains(candidate, "거절"):
		return "의견거절"
	case strings.Contains(candidate, "적정"):
		return "적정"
	default:
		return ""
	}
}

// findSection returns up to sectionRadius runes either side of the first
// keyword found in text.
func findSection(text string, keywords ...string) string {
	for _, kw := range keywords {
		idx := strings.Index(text, kw)
		if idx < 0 {
			continue
		}
		start := idx
		for n := 0; n < sectionRadius && start > 0; n++ {
			_, size := utf8.DecodeLastRuneInString(text[:start])
			start -= size
		}
		end := idx + len(kw)
		for n := 0; n < sectionRadius && end < len(text); n++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		return text[start:end]
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package filings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var safeSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SnapshotSource serves provider payloads stored on disk:
//
//	<root>/<corp_code>/<year>_CFS.json
//	<root>/<corp_code>/<year>_OFS.json
//	<root>/audit/<receipt_no>.html
type SnapshotSource struct {
	root string
}

// NewSnapshotSource constructs a source rooted at dir.
func NewSnapshotSource(dir string) *SnapshotSource {
	return &SnapshotSource{root: dir}
}

// FetchStatement loads every variant filed for the company and year. The
// requested variant is not required to exist; the normalizer reports it.
func (s *SnapshotSource) FetchStatement(ctx context.Context, corpCode string, year int, variant Variant) (Filing, error) {
	if err := ctx.Err(); err != nil {
		return Filing{}, err
	}
	if !safeSegment.MatchString(corpCode) {
		return Filing{}, &ProviderError{Op: "fetch statement", Status: "100", Message: fmt.Sprintf("invalid corp code %q", corpCode)}
	}

	filing := Filing{CorpCode: corpCode, Year: year, Variants: make(map[Variant][]RawLineItem, len(Variants))}
	for _, v := range Variants {
		path := filepath.Join(s.root, corpCode, strconv.Itoa(year)+"_"+v.Code()+".json")
		stmt, err := readStatement(path)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Filing{}, err
		}
		filing.Variants[v] = stmt.Lines
		// The requested variant's receipt wins; otherwise keep the first seen.
		if filing.ReceiptNo == "" || v == variant {
			filing.ReceiptNo = stmt.ReceiptNo
		}
		if filing.CorpName == "" {
			filing.CorpName = stmt.CorpName
		}
	}
	if len(filing.Variants) == 0 {
		return Filing{}, fmt.Errorf("%w: %s/%d", ErrNotFound, corpCode, year)
	}
	return filing, nil
}

// FetchAuditInfo extracts audit attributes from the stored report for receiptNo.
func (s *SnapshotSource) FetchAuditInfo(ctx context.Context, receiptNo string) (AuditInfo, error) {
	if err := ctx.Err(); err != nil {
		return AuditInfo{}, err
	}
	if !safeSegment.MatchString(receiptNo) {
		return AuditInfo{}, &ProviderError{Op: "fetch audit report", Status: "100", Message: fmt.Sprintf("invalid receipt number %q", receiptNo)}
	}
	f, err := os.Open(filepath.Join(s.root, "audit", receiptNo+".html"))
	if errors.Is(err, fs.ErrNotExist) {
		return AuditInfo{}, fmt.Errorf("%w: audit report %s", ErrNotFound, receiptNo)
	}
	if err != nil {
		return AuditInfo{}, &ProviderError{Op: "fetch audit report", Err: err}
	}
	defer f.Close()

	info, err := ExtractAuditInfo(f)
	if err != nil {
		return AuditInfo{}, err
	}
	info.ReceiptNo = receiptNo
	return info, nil
}

func readStatement(path string) (Statement, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Statement{}, ErrNotFound
	}
	if err != nil {
		return Statement{}, &ProviderError{Op: "fetch statement", Err: err}
	}
	defer f.Close()
	return DecodeStatement(f)
}

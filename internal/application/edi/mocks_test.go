package edi_test

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
)

// ── repos en memoria ──────────────────────────────────────────────────────────

type mockDocRepo struct {
	mu    sync.Mutex
	docs  map[string]*entity.Document
	lines map[string][]*entity.LineItem
}

func newMockDocRepo(docs ...*entity.Document) *mockDocRepo {
	r := &mockDocRepo{docs: map[string]*entity.Document{}, lines: map[string][]*entity.LineItem{}}
	for _, d := range docs {
		copy := *d
		r.docs[d.ID] = &copy
	}
	return r
}

func (r *mockDocRepo) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *doc
	r.docs[doc.ID] = &copy
	return nil
}

func (r *mockDocRepo) CreateLine(_ context.Context, line *entity.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *line
	r.lines[line.DocumentID] = append(r.lines[line.DocumentID], &copy)
	return nil
}

func (r *mockDocRepo) Update(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *doc
	r.docs[doc.ID] = &copy
	return nil
}

func (r *mockDocRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *doc
	return &copy, nil
}

func (r *mockDocRepo) GetByClave(_ context.Context, companyID, clave string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.CompanyID == companyID && doc.Clave == clave {
			copy := *doc
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockDocRepo) GetLines(_ context.Context, documentID string) ([]*entity.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines[documentID], nil
}

func (r *mockDocRepo) List(_ context.Context, filter repository.DocumentFilter) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, doc := range r.docs {
		if filter.CompanyID != "" && doc.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Direction != "" && doc.Direction != filter.Direction {
			continue
		}
		if len(filter.States) > 0 && !contains(filter.States, doc.StateTributacion) {
			continue
		}
		if len(filter.SendStates) > 0 && !contains(filter.SendStates, doc.StateSendInvoice) {
			continue
		}
		if filter.WithXMLOnly && !doc.HasXML() {
			continue
		}
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		copy := *doc
		out = append(out, &copy)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type mockCompanyRepo struct{ company *entity.Company }

func (r *mockCompanyRepo) Create(context.Context, *entity.Company) error { return nil }
func (r *mockCompanyRepo) GetByID(context.Context, string) (*entity.Company, error) {
	if r.company == nil {
		return nil, domain.ErrNotFound
	}
	return r.company, nil
}
func (r *mockCompanyRepo) GetByIdentification(context.Context, string) (*entity.Company, error) {
	return r.GetByID(context.Background(), "")
}
func (r *mockCompanyRepo) Update(context.Context, *entity.Company) error { return nil }
func (r *mockCompanyRepo) List(context.Context, int, int) ([]*entity.Company, error) {
	return nil, nil
}

type mockPartyRepo struct {
	mu      sync.Mutex
	parties map[string]*entity.Party
	created []*entity.Party
}

func newMockPartyRepo(parties ...*entity.Party) *mockPartyRepo {
	r := &mockPartyRepo{parties: map[string]*entity.Party{}}
	for _, p := range parties {
		r.parties[p.ID] = p
	}
	return r
}

func (r *mockPartyRepo) Create(_ context.Context, party *entity.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[party.ID] = party
	r.created = append(r.created, party)
	return nil
}

func (r *mockPartyRepo) GetByID(_ context.Context, id string) (*entity.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	party, ok := r.parties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return party, nil
}

func (r *mockPartyRepo) GetByIdentification(_ context.Context, _, identification string) (*entity.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, party := range r.parties {
		if party.Identification == identification {
			return party, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockPartyRepo) ListByCompany(context.Context, string, int, int) ([]*entity.Party, error) {
	return nil, nil
}
func (r *mockPartyRepo) Update(context.Context, *entity.Party) error { return nil }
func (r *mockPartyRepo) Delete(context.Context, string) error        { return nil }

type mockTaxRepo struct{ taxes []*entity.Tax }

func (r *mockTaxRepo) Create(context.Context, *entity.Tax) error { return nil }
func (r *mockTaxRepo) GetByID(context.Context, string) (*entity.Tax, error) {
	return nil, domain.ErrNotFound
}
func (r *mockTaxRepo) FindByCodeAndRate(_ context.Context, _, code string, rate decimal.Decimal, usage string) (*entity.Tax, error) {
	for _, tax := range r.taxes {
		if tax.Code == code && tax.Rate.Equal(rate) && tax.Usage == usage {
			return tax, nil
		}
	}
	return nil, domain.ErrNotFound
}
func (r *mockTaxRepo) ListByCompany(context.Context, string) ([]*entity.Tax, error) {
	return r.taxes, nil
}
func (r *mockTaxRepo) Update(context.Context, *entity.Tax) error { return nil }

type mockJournalRepo struct{ journal *entity.Journal }

func (r *mockJournalRepo) Create(context.Context, *entity.Journal) error { return nil }
func (r *mockJournalRepo) GetByID(context.Context, string) (*entity.Journal, error) {
	if r.journal == nil {
		return nil, domain.ErrNotFound
	}
	return r.journal, nil
}
func (r *mockJournalRepo) ListByCompany(context.Context, string) ([]*entity.Journal, error) {
	return nil, nil
}
func (r *mockJournalRepo) Update(context.Context, *entity.Journal) error { return nil }

type mockSeqRepo struct {
	mu   sync.Mutex
	next map[string]int64
}

func newMockSeqRepo() *mockSeqRepo { return &mockSeqRepo{next: map[string]int64{}} }

func (r *mockSeqRepo) NextValue(_ context.Context, journalID, docType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := journalID + "/" + docType
	r.next[key]++
	return r.next[key], nil
}

// stubTxRunner pasa los mismos repos en memoria; no hay rollback real, los
// tests cuidan que los fallos ocurran antes de cualquier escritura.
type stubTxRunner struct {
	docs    repository.DocumentRepository
	parties repository.PartyRepository
}

func (s stubTxRunner) Run(ctx context.Context, fn func(repository.DocumentRepository, repository.PartyRepository) error) error {
	return fn(s.docs, s.parties)
}

// ── API y firma ───────────────────────────────────────────────────────────────

type mockAPI struct {
	mu            sync.Mutex
	submitResult  *infra.SubmitResult
	submitErr     error
	statusResult  *infra.StatusResult
	statusErr     error
	submitCalls   []*infra.SubmitRequest
	statusCalls   []string
}

func (a *mockAPI) Submit(_ context.Context, req *infra.SubmitRequest) (*infra.SubmitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitCalls = append(a.submitCalls, req)
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	if a.submitResult != nil {
		return a.submitResult, nil
	}
	return &infra.SubmitResult{Status: 202}, nil
}

func (a *mockAPI) QueryStatus(_ context.Context, key string) (*infra.StatusResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusCalls = append(a.statusCalls, key)
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	if a.statusResult != nil {
		return a.statusResult, nil
	}
	return &infra.StatusResult{HTTPStatus: 200, IndEstado: "procesando"}, nil
}

// fakeSigner devuelve el XML intacto; basta para verificar el flujo.
type fakeSigner struct{}

func (fakeSigner) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	return xmlBytes, nil
}

func testCert() tls.Certificate {
	return tls.Certificate{Certificate: [][]byte{{0x01}}, PrivateKey: struct{}{}}
}

type mockNotifier struct {
	mu          sync.Mutex
	notices     []string
	acceptances []string
}

func (n *mockNotifier) NotifyRejection(_ context.Context, doc *entity.Document, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, doc.Clave+": "+reason)
	return nil
}

func (n *mockNotifier) NotifyAcceptance(_ context.Context, doc *entity.Document) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.acceptances = append(n.acceptances, doc.Clave)
	return nil
}

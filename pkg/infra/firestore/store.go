package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// DefaultCollection is the collection reports are stored in
const DefaultCollection = "fontprov_reports"

// Store keeps provisioning reports in Firestore, one document per run
type Store struct {
	client     *firestore.Client
	collection string
}

// New creates a Firestore report store
func New(ctx context.Context, projectID, databaseID, collection string, opts ...option.ClientOption) (*Store, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}
	return &Store{client: client, collection: collection}, nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

type assetDoc struct {
	Family string `firestore:"family"`
	Style  string `firestore:"style"`
	State  string `firestore:"state"`
	Kind   string `firestore:"kind,omitempty"`
	Reason string `firestore:"reason,omitempty"`
	File   string `firestore:"file,omitempty"`
}

type reportDoc struct {
	RunID        string     `firestore:"run_id"`
	Catalog      string     `firestore:"catalog"`
	Strategy     string     `firestore:"strategy"`
	Policy       string     `firestore:"policy"`
	InstallDir   string     `firestore:"install_dir"`
	State        string     `firestore:"state"`
	Outcome      string     `firestore:"outcome"`
	Requested    int        `firestore:"requested"`
	Installed    int        `firestore:"installed"`
	Failed       int        `firestore:"failed"`
	Skipped      int        `firestore:"skipped"`
	IndexRebuilt bool       `firestore:"index_rebuilt"`
	IndexError   string     `firestore:"index_error,omitempty"`
	Assets       []assetDoc `firestore:"assets"`
	StartedAt    time.Time  `firestore:"started_at"`
	FinishedAt   time.Time  `firestore:"finished_at"`
}

func newReportDoc(r *model.ProvisionReport) *reportDoc {
	doc := &reportDoc{
		RunID:        r.RunID,
		Catalog:      r.Catalog,
		Strategy:     string(r.Strategy),
		Policy:       string(r.Policy),
		InstallDir:   r.InstallDir,
		State:        string(r.State),
		Outcome:      string(r.Outcome()),
		Requested:    r.Requested,
		Installed:    r.Installed,
		Failed:       r.Failed,
		Skipped:      r.Skipped,
		IndexRebuilt: r.IndexRebuilt,
		IndexError:   r.IndexError,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	for _, a := range r.Assets {
		doc.Assets = append(doc.Assets, assetDoc{
			Family: a.Family,
			Style:  a.Style,
			State:  string(a.State),
			Kind:   string(a.Kind),
			Reason: a.Reason,
			File:   a.File,
		})
	}
	return doc
}

// Put stores the report under its run ID
func (s *Store) Put(ctx context.Context, report *model.ProvisionReport) error {
	if _, err := s.client.Collection(s.collection).Doc(report.RunID).Set(ctx, newReportDoc(report)); err != nil {
		return goerr.Wrap(err, "failed to store report",
			goerr.V("collection", s.collection), goerr.V("run_id", report.RunID))
	}
	return nil
}

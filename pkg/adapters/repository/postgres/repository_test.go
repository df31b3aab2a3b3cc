package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
)

func newTestRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lnkzip"),
		tcpostgres.WithUsername("lnkzip"),
		tcpostgres.WithPassword("lnkzip"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	repo, err := NewPostgresRepository(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPostgresRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := "owner-1"

	link := &domain.ShortLink{OriginalURL: "https://example.org", ShortCode: "promo1", IsActive: true, UserID: &owner}
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if err := repo.CreateLink(ctx, &domain.ShortLink{OriginalURL: "https://x.example", ShortCode: "promo1", IsActive: true}); !errors.Is(err, domain.ErrAliasConflict) {
		t.Errorf("duplicate err = %v, want ErrAliasConflict", err)
	}

	t.Run("ConcurrentClicks", func(t *testing.T) {
		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.RecordClick(ctx, &domain.ClickEvent{URLID: &link.ID, UserAgent: "curl/8.0"}); err != nil {
					t.Errorf("RecordClick: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := repo.GetActiveLink(ctx, "promo1", time.Now())
		if err != nil || got == nil {
			t.Fatalf("GetActiveLink: %v", err)
		}
		if got.ClickCount != n {
			t.Errorf("click_count = %d, want %d", got.ClickCount, n)
		}

		stats, agents, err := repo.GetLinkStats(ctx, link.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalClicks != n || len(agents) != 1 {
			t.Errorf("stats = %+v agents = %+v", stats, agents)
		}
	})

	t.Run("MissingTarget", func(t *testing.T) {
		ghost := "ghost"
		if err := repo.RecordClick(ctx, &domain.ClickEvent{URLID: &ghost}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("QRCodes", func(t *testing.T) {
		qr := &domain.QRCode{
			Title: "Menu", QRType: domain.QRTypeURL, Content: "https://example.org/menu",
			QRColor: domain.DefaultQRColor, BGColor: domain.DefaultBGColor, Size: domain.DefaultSize,
			FrameStyle: domain.FrameNone, IsActive: true, UserID: &owner,
		}
		if err := repo.CreateQRCode(ctx, qr); err != nil {
			t.Fatal(err)
		}
		if err := repo.RecordScan(ctx, &domain.ClickEvent{QRCodeID: &qr.ID}); err != nil {
			t.Fatal(err)
		}
		got, err := repo.GetQRCode(ctx, qr.ID)
		if err != nil || got == nil {
			t.Fatalf("GetQRCode: %v", err)
		}
		if got.ScanCount != 1 || got.QRType != domain.QRTypeURL {
			t.Errorf("qr = %+v", got)
		}

		summary, err := repo.GetSummary(ctx, owner)
		if err != nil {
			t.Fatal(err)
		}
		if summary.QRCodes != 1 || summary.ShortLinks != 1 || summary.TotalScans != 1 {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("FeatureTrials", func(t *testing.T) {
		for i, want := range []bool{true, true, false} {
			used, _, err := repo.UseFeatureTrial(ctx, owner, "logo", 2)
			if err != nil {
				t.Fatal(err)
			}
			if used != want {
				t.Errorf("call %d used = %v, want %v", i+1, used, want)
			}
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		if err := repo.DeactivateLink(ctx, link.ID); err != nil {
			t.Fatal(err)
		}
		if got, _ := repo.GetActiveLink(ctx, "promo1", time.Now()); got != nil {
			t.Error("deactivated link still resolves")
		}
	})
}

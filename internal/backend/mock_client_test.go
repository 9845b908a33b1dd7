package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

func TestMockClient_FetchUserInfo_UnknownIdentity(t *testing.T) {
	client := NewMockClient(0)

	profile, err := client.FetchUserInfo(context.Background(), "token-fresh")
	if err != nil {
		t.Fatalf("FetchUserInfo() error = %v", err)
	}
	if profile.UserExist {
		t.Error("UserExist = true for an identity with no record, want false")
	}
	if profile.Message != "user does not exist" {
		t.Errorf("Message = %q, want %q", profile.Message, "user does not exist")
	}
}

func TestMockClient_CreateUserThenFetch(t *testing.T) {
	client := NewMockClient(0)

	draft := &model.ProfileDraft{DisplayName: "Asha", IsActive: true}
	if err := client.CreateUser(context.Background(), "token-asha", draft); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	profile, err := client.FetchUserInfo(context.Background(), "token-asha")
	if err != nil {
		t.Fatalf("FetchUserInfo() error = %v", err)
	}
	if !profile.UserExist {
		t.Fatal("UserExist = false after CreateUser, want true")
	}
	if profile.User.DisplayName != "Asha" {
		t.Errorf("DisplayName = %q, want Asha", profile.User.DisplayName)
	}
	if profile.User.Level != 1 {
		t.Errorf("Level = %d, want 1 for a new user", profile.User.Level)
	}
}

func TestMockClient_UpdateUser_RequiresRecord(t *testing.T) {
	client := NewMockClient(0)

	err := client.UpdateUser(context.Background(), "token-ghost", &model.ProfileDraft{DisplayName: "Ghost"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != 404 {
		t.Errorf("UpdateUser() error = %v, want 404 StatusError", err)
	}
}

func TestMockClient_CreateReport_AwardsPoints(t *testing.T) {
	client := NewMockClient(0)

	if err := client.CreateUser(context.Background(), "token-asha", &model.ProfileDraft{DisplayName: "Asha"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	created, err := client.CreateReport(context.Background(), "token-asha", &model.Report{
		Location:    "MG Road",
		Description: "Deep pothole near the metro exit.",
	})
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	if created.ID == "" {
		t.Error("created.ID is empty, want generated ID")
	}
	if created.Status != model.ReportStatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}

	profile, err := client.FetchUserInfo(context.Background(), "token-asha")
	if err != nil {
		t.Fatalf("FetchUserInfo() error = %v", err)
	}
	if profile.User.ReportsCount != 1 {
		t.Errorf("ReportsCount = %d, want 1", profile.User.ReportsCount)
	}
	if profile.User.ExpPoints != 10 {
		t.Errorf("ExpPoints = %d, want 10", profile.User.ExpPoints)
	}
}

func TestMockClient_ReportLifecycle(t *testing.T) {
	client := NewMockClient(0)

	created, err := client.CreateReport(context.Background(), "token-asha", &model.Report{
		Location:    "Brigade Road",
		Description: "Cluster of potholes after the junction.",
	})
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	got, err := client.GetReport(context.Background(), "token-asha", created.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.Location != "Brigade Road" {
		t.Errorf("Location = %q, want Brigade Road", got.Location)
	}

	// Another identity cannot see the report.
	if _, err := client.GetReport(context.Background(), "token-other", created.ID); err == nil {
		t.Error("GetReport() error = nil for another identity, want 404")
	}

	if err := client.DeleteReport(context.Background(), "token-asha", created.ID); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if _, err := client.GetReport(context.Background(), "token-asha", created.ID); err == nil {
		t.Error("GetReport() error = nil after delete, want 404")
	}
}

func TestMockClient_ListReports_SeedsSamples(t *testing.T) {
	client := NewMockClient(0)

	reports, err := client.ListReports(context.Background(), "token-asha")
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("ListReports() = empty, want the seeded sample table")
	}
	for _, r := range reports {
		if r.UserID != "token-asha" {
			t.Errorf("UserID = %q, want the caller's key", r.UserID)
		}
	}
}

func TestMockClient_CancelledContext(t *testing.T) {
	client := NewMockClient(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.FetchUserInfo(ctx, "token-asha"); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchUserInfo() error = %v, want context.Canceled", err)
	}
}

func TestMockClient_Leaderboard(t *testing.T) {
	client := NewMockClient(0)

	entries, err := client.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("len(entries) = %d, want 4", len(entries))
	}
}

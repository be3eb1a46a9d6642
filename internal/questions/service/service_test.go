package service

import (
	"context"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/repository"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (Service, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	items, err := questions.Seed()
	require.NoError(t, err)
	n, err := SeedIfEmpty(context.Background(), repo, items)
	require.NoError(t, err)
	require.Equal(t, len(items), n)
	return New(repo), repo
}

func TestSeedIfEmpty_OnlyOnce(t *testing.T) {
	_, repo := seeded(t)
	items, _ := questions.Seed()
	n, err := SeedIfEmpty(context.Background(), repo, items)
	require.NoError(t, err)
	require.Zero(t, n)
	count, _ := repo.Count(context.Background())
	require.EqualValues(t, len(items), count)
}

func TestBrowse_SortedByLevelThenCode(t *testing.T) {
	svc, _ := seeded(t)
	list, err := svc.Browse(context.Background(), questions.Filter{Tab: questions.Tab300})
	require.NoError(t, err)
	codes := make([]string, 0, len(list))
	for _, q := range list {
		codes = append(codes, q.CourseCode)
	}
	require.Equal(t, []string{"CSC 301", "CSC 302", "CSC 305", "CSC 315", "CSC 321"}, codes)

	list, err = svc.Browse(context.Background(), questions.Filter{Search: "networks"})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestDownload_CountsAndRecordsMetric(t *testing.T) {
	svc, _ := seeded(t)
	before := testutil.ToFloat64(metrics.QuestionDownloads)

	q, err := svc.Download(context.Background(), "csc415-2022-first")
	require.NoError(t, err)
	require.Equal(t, 68, q.Downloads)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.QuestionDownloads))

	_, err = svc.Download(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpload_AndRecentUploads(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{CourseCode: " ", Title: "x"})
	require.Error(t, err)

	first, err := svc.Upload(ctx, UploadInput{CourseCode: "CSC 315", Title: "Operating Systems", Year: time.Now().Year(), Semester: "First", Level: "300L", Format: "PDF", UploadedBy: "teacher-1"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Upload(ctx, UploadInput{CourseCode: "CSC 321", Title: "Computer Networks", Year: time.Now().Year(), Semester: "Second", Level: "300L", Format: "PDF", UploadedBy: "teacher-1"})
	require.NoError(t, err)
	_, err = svc.Upload(ctx, UploadInput{CourseCode: "CSC 999", Title: "Someone else", Year: time.Now().Year(), Semester: "First", Level: "500L", Format: "PDF", UploadedBy: "teacher-2"})
	require.NoError(t, err)

	mine, err := svc.RecentUploads(ctx, "teacher-1", 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID)

	recent, err := svc.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
}

func TestRecommended(t *testing.T) {
	svc, _ := seeded(t)
	list, err := svc.Recommended(context.Background(), "300L", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "CSC 315", list[0].CourseCode)
	require.Equal(t, "CSC 321", list[1].CourseCode)

	all, err := svc.Recommended(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, all, 12)
	require.Equal(t, "CSC 415", all[0].CourseCode)
}

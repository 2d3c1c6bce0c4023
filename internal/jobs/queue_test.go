package jobs

import (
	"path/filepath"
	"testing"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewQueue(store)
}

func TestQueueEnqueueClaimComplete(t *testing.T) {
	q := openTestQueue(t)

	job, err := q.Enqueue(domain.Job{FilePath: "/media/movie.mkv", JobType: domain.JobTypeProcess})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected Enqueue to assign a UUID")
	}

	claimed, err := q.Claim("worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected to claim the enqueued job, got %+v", claimed)
	}
	if claimed.Status != domain.JobRunning {
		t.Fatalf("expected claimed job to be running, got %s", claimed.Status)
	}

	if again, err := q.Claim("worker-2"); err != nil || again != nil {
		t.Fatalf("expected queue to be empty after the single claim, got %+v, %v", again, err)
	}

	if err := q.Complete(job.ID, `{"phases":3}`, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := q.Get(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.JobCompleted {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
}

func TestQueueClaimHonorsPriorityThenAge(t *testing.T) {
	q := openTestQueue(t)

	low, _ := q.Enqueue(domain.Job{FilePath: "/media/a.mkv", JobType: domain.JobTypeProcess, Priority: 200})
	high, _ := q.Enqueue(domain.Job{FilePath: "/media/b.mkv", JobType: domain.JobTypeProcess, Priority: 10})

	claimed, err := q.Claim("worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != high.ID {
		t.Fatalf("expected the higher-priority job first, got %+v (want %s, not %s)", claimed, high.ID, low.ID)
	}
}

func TestQueueFailAndCancel(t *testing.T) {
	q := openTestQueue(t)

	job, _ := q.Enqueue(domain.Job{FilePath: "/media/a.mkv", JobType: domain.JobTypeProcess})
	if _, err := q.Claim("worker-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := q.Fail(job.ID, "disk full"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobFailed || got.ErrorMessage != "disk full" {
		t.Fatalf("expected failed job with message, got %+v", got)
	}

	job2, _ := q.Enqueue(domain.Job{FilePath: "/media/b.mkv", JobType: domain.JobTypeProcess})
	if err := q.Cancel(job2.ID, "user requested"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got2, _ := q.Get(job2.ID)
	if got2.Status != domain.JobCancelled {
		t.Fatalf("expected cancelled status, got %s", got2.Status)
	}
}

func TestQueueStats(t *testing.T) {
	q := openTestQueue(t)

	a, _ := q.Enqueue(domain.Job{FilePath: "/media/a.mkv", JobType: domain.JobTypeProcess})
	_, _ = q.Enqueue(domain.Job{FilePath: "/media/b.mkv", JobType: domain.JobTypeProcess})
	if _, err := q.Claim("worker-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_ = q.Complete(a.ID, "{}", "")

	stats, err := q.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Completed != 1 || stats.Queued != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestQueueSubscribeReceivesEvents(t *testing.T) {
	q := openTestQueue(t)
	ch := q.Subscribe()
	defer q.Unsubscribe(ch)

	job, err := q.Enqueue(domain.Job{FilePath: "/media/a.mkv", JobType: domain.JobTypeProcess})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != EventEnqueued || ev.Job.ID != job.ID {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected an enqueued event to be buffered")
	}
}

func TestQueueRecoverResetsRunningJobs(t *testing.T) {
	q := openTestQueue(t)
	job, _ := q.Enqueue(domain.Job{FilePath: "/media/a.mkv", JobType: domain.JobTypeProcess})
	if _, err := q.Claim("worker-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	n, err := q.Recover()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 job recovered, got %d", n)
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobQueued {
		t.Fatalf("expected recovered job back in queued status, got %s", got.Status)
	}
}

package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// Job is a background process that has not been reaped yet.
type Job struct {
	PID    int
	Stdin  *os.File
	Stdout *os.File
}

func (j *Job) close() {
	for _, f := range []*os.File{j.Stdin, j.Stdout} {
		if f != nil {
			_ = f.Close()
		}
	}
}

type waitFunc func(pid int, ws *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)

// Registry tracks outstanding background jobs. Order is not preserved
// across removals.
type Registry struct {
	jobs []*Job
	wait waitFunc
	log  *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{wait: unix.Wait4, log: log}
}

// Record starts tracking pid together with the files wired into it.
func (r *Registry) Record(pid int, stdin, stdout *os.File) {
	r.jobs = append(r.jobs, &Job{PID: pid, Stdin: stdin, Stdout: stdout})
}

func (r *Registry) Len() int {
	return len(r.jobs)
}

// PIDs lists the tracked process ids.
func (r *Registry) PIDs() []int {
	pids := make([]int, len(r.jobs))
	for i, j := range r.jobs {
		pids[i] = j.PID
	}
	return pids
}

// ReapFinished polls every job without blocking. Finished jobs are
// reported to w and removed in the same pass.
func (r *Registry) ReapFinished(w io.Writer) {
	for i := 0; i < len(r.jobs); {
		job := r.jobs[i]

		var ws unix.WaitStatus
		pid, err := r.wait(job.PID, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			r.log.Warn("background job vanished", "pid", job.PID)
		case err != nil:
			r.log.Error("failed to poll background job", "pid", job.PID, "error", err)
			i++
			continue
		case pid == 0:
			i++
			continue
		default:
			status := fromWaitStatus(ws)
			r.report(w, job.PID, status)
			r.log.Info("background job reaped", "pid", job.PID, "status", status.String())
		}

		job.close()
		r.remove(i)
	}
}

func (r *Registry) report(w io.Writer, pid int, status Status) {
	if status.Signaled {
		fmt.Fprintf(w, "Process %d was SIGNALED with %d\n", pid, int(status.Signal))
		return
	}
	fmt.Fprintf(w, "Process %d exited with status %d\n", pid, status.Code)
}

func (r *Registry) remove(i int) {
	last := len(r.jobs) - 1
	r.jobs[i] = r.jobs[last]
	r.jobs[last] = nil
	r.jobs = r.jobs[:last]
}

// DrainAll forgets every job without waiting for it. The processes keep
// running.
func (r *Registry) DrainAll() {
	for _, job := range r.jobs {
		job.close()
		r.log.Debug("background job released", "pid", job.PID)
	}
	r.jobs = nil
}

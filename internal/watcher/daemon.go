package watcher

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
)

// StartDaemon forks the current binary into a detached watch process.
// The child joins its own session with stdout and stderr appended to
// logFile, and its PID lands in pidFile so StopDaemon can reach it.
func (w *Watcher) StartDaemon(pidFile, logFile string) error {
	if pid, running := daemonPID(pidFile); running {
		return fmt.Errorf("watch daemon already running (pid %d)", pid)
	}

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	child := exec.Command(executable, "watch", "--daemon-child",
		"--pid-file", pidFile, "--log-file", logFile)
	child.Stdout = logF
	child.Stderr = logF
	child.Stdin = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to fork watch daemon: %w", err)
	}

	pid := child.Process.Pid
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		child.Process.Kill()
		return fmt.Errorf("failed to write pid file: %w", err)
	}

	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("failed to detach from daemon: %w", err)
	}
	w.log.Infow("watch daemon started", "pid", pid, "log", logFile)
	return nil
}

// RunDaemon is the child side of StartDaemon: it watches until SIGTERM
// or SIGINT arrives, then reconciles one last time and removes the pid
// file.
func (w *Watcher) RunDaemon(pidFile string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	sig := <-sigCh
	w.log.Infow("shutting down", "signal", sig.String())

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// StopDaemon asks a running daemon to shut down via SIGTERM. The
// daemon removes its own pid file on the way out.
func StopDaemon(pidFile string) error {
	pid, running := daemonPID(pidFile)
	if !running {
		return fmt.Errorf("watch daemon not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}

// IsDaemonRunning reports whether pidFile names a live daemon.
func IsDaemonRunning(pidFile string) (bool, error) {
	_, running := daemonPID(pidFile)
	return running, nil
}

// daemonPID reads pidFile and probes the process with signal 0. A
// missing file means no daemon; a stale or unparseable pid file is
// cleaned up and also reported as not running.
func daemonPID(pidFile string) (int, bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		os.Remove(pidFile)
		return 0, false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return 0, false
	}
	return pid, true
}

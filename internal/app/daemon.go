package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	daemonUnitName = "signal-serve.service"
	systemdUnitDir = "/etc/systemd/system"
)

func runDaemon(args []string) int {
	if len(args) == 0 {
		printDaemonUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printDaemonUsage()
		return 0
	case "install":
		return runDaemonInstall(args[1:])
	case "uninstall":
		return runDaemonUninstall(args[1:])
	case "start":
		return runDaemonServiceAction("start", args[1:], true)
	case "stop":
		return runDaemonServiceAction("stop", args[1:], true)
	case "restart":
		return runDaemonServiceAction("restart", args[1:], true)
	case "status":
		return runDaemonServiceAction("status", args[1:], false)
	default:
		fmt.Fprintf(os.Stderr, "unknown daemon action: %s\n\n", args[0])
		printDaemonUsage()
		return 2
	}
}

func runDaemonInstall(args []string) int {
	fs := flag.NewFlagSet("daemon install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultUser := strings.TrimSpace(os.Getenv("USER"))
	if defaultUser == "" {
		defaultUser = "root"
	}

	userName := fs.String("user", defaultUser, "Run the service as this Linux user")
	port := fs.Int("port", 8080, "Port for signal serve")
	envFile := fs.String("env-file", "", "EnvironmentFile passed to the unit (optional)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon install does not accept positional args")
		return 2
	}
	if *port < 1 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}
	if strings.TrimSpace(*userName) == "" {
		fmt.Fprintln(os.Stderr, "--user must not be empty")
		return 2
	}
	if err := requireRoot("install"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	binaryPath, err := resolveSignalBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate the signal binary: %v\n", err)
		return 1
	}

	resolvedEnvFile := strings.TrimSpace(*envFile)
	if resolvedEnvFile != "" {
		absPath, err := filepath.Abs(resolvedEnvFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve --env-file: %v\n", err)
			return 2
		}
		if _, err := os.Stat(absPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read --env-file: %v\n", err)
			return 2
		}
		resolvedEnvFile = absPath
	}

	unit := buildServeUnitFile(strings.TrimSpace(*userName), binaryPath, resolvedEnvFile, *port)
	if err := writeUnitFile(daemonUnitName, unit); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", daemonUnitName, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}
	if err := runSystemctl("enable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable the service: %v\n", err)
		return 1
	}

	fmt.Printf("Installed %s\n", daemonUnitName)
	fmt.Println("The service is enabled on boot. Run `signal daemon start` to start it now.")
	return 0
}

func runDaemonUninstall(args []string) int {
	fs := flag.NewFlagSet("daemon uninstall", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon uninstall does not accept positional args")
		return 2
	}
	if err := requireRoot("uninstall"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := runSystemctl("stop", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to stop the service: %v\n", err)
	}
	if err := runSystemctl("disable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to disable the service: %v\n", err)
	}

	unitPath := filepath.Join(systemdUnitDir, daemonUnitName)
	if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", unitPath, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %s\n", daemonUnitName)
	return 0
}

func runDaemonServiceAction(action string, args []string, requireRootPrivileges bool) int {
	fs := flag.NewFlagSet("daemon "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "daemon %s does not accept positional args\n", action)
		return 2
	}
	if requireRootPrivileges {
		if err := requireRoot(action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	systemctlArgs := make([]string, 0, 3)
	systemctlArgs = append(systemctlArgs, action)
	if action == "status" {
		systemctlArgs = append(systemctlArgs, "--no-pager")
	}
	systemctlArgs = append(systemctlArgs, daemonUnitName)

	if err := runSystemctl(systemctlArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s the service: %v\n", action, err)
		return 1
	}
	return 0
}

func requireRoot(action string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("daemon %s requires root privileges; run with sudo: sudo signal daemon %s", action, action)
}

func resolveSignalBinary() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	if resolvedPath, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolvedPath
	}
	return filepath.Abs(exePath)
}

func buildServeUnitFile(userName, binaryPath, envFile string, port int) string {
	var builder strings.Builder
	builder.WriteString("[Unit]\n")
	builder.WriteString("Description=Congress Signal webhook and preview server\n")
	builder.WriteString("After=network-online.target postgresql.service\n")
	builder.WriteString("Wants=network-online.target\n")
	builder.WriteString("\n[Service]\n")
	builder.WriteString("Type=simple\n")
	fmt.Fprintf(&builder, "User=%s\n", userName)
	if envFile != "" {
		fmt.Fprintf(&builder, "EnvironmentFile=%s\n", envFile)
	}
	fmt.Fprintf(&builder, "WorkingDirectory=%s\n", filepath.Dir(binaryPath))
	fmt.Fprintf(&builder, "ExecStart=%s serve --port %d\n", binaryPath, port)
	builder.WriteString("Restart=on-failure\n")
	builder.WriteString("RestartSec=5\n")
	builder.WriteString("\n[Install]\n")
	builder.WriteString("WantedBy=multi-user.target\n")
	return builder.String()
}

func writeUnitFile(unitName, contents string) error {
	unitPath := filepath.Join(systemdUnitDir, unitName)
	return os.WriteFile(unitPath, []byte(contents), 0o644)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func printDaemonUsage() {
	fmt.Fprintln(os.Stderr, "signal daemon <action>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  install    Write and enable the systemd unit for signal serve")
	fmt.Fprintln(os.Stderr, "  uninstall  Stop, disable and remove the unit")
	fmt.Fprintln(os.Stderr, "  start      Start the service")
	fmt.Fprintln(os.Stderr, "  stop       Stop the service")
	fmt.Fprintln(os.Stderr, "  restart    Restart the service")
	fmt.Fprintln(os.Stderr, "  status     Show service status")
}

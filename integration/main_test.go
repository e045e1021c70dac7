package integration

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

const binaryPath = "../cmd/login-front/login-front"

// TestMain builds the login-front binary once for all tests
func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		fmt.Println("Skipping integration tests in short mode")
		os.Exit(0)
	}

	fmt.Println("Building login-front binary...")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/login-front")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		fmt.Printf("Failed to build login-front: %v\n", err)
		os.Exit(1)
	}

	logFile := "login-front-test.log"
	os.Setenv("LOGIN_FRONT_LOG_FILE", logFile)

	exitCode := m.Run()
	if exitCode != 0 {
		showTestFailureDiagnostics(logFile)
	}
	os.Exit(exitCode)
}

// showTestFailureDiagnostics displays server logs when tests fail
func showTestFailureDiagnostics(logFile string) {
	fmt.Println("\n========== TEST FAILURE DIAGNOSTICS ==========")

	if _, err := os.Stat(logFile); err == nil {
		fmt.Println("\nlogin-front logs (last 50 lines):")
		fmt.Println("----------------------------------------------")
		tailCmd := exec.Command("tail", "-50", logFile)
		tailCmd.Stdout = os.Stdout
		tailCmd.Stderr = os.Stderr
		_ = tailCmd.Run()
	}

	fmt.Println("\n==============================================")
}

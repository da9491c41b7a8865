package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jmercer/gamemaster/pkg/chat"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running game-master API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 4 * time.Minute},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// CheckHealth verifies the API is reachable before running any steps.
func (r *Runner) CheckHealth() error {
	resp, err := r.Client.Get(r.BaseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// RunSuite executes every step of the suite in order.
func (r *Runner) RunSuite(suite TestSuite) []TestResult {
	results := make([]TestResult, 0, len(suite.Steps))

	for i, step := range suite.Steps {
		stepName := step.Name
		if stepName == "" {
			stepName = fmt.Sprintf("step_%d", i+1)
		}

		result := r.runStep(suite, step, stepName)
		results = append(results, result)

		if !result.Success {
			r.logf("FAIL %s / %s: %v", suite.Name, stepName, result.Error)
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		} else {
			r.logf("PASS %s / %s (%s)", suite.Name, stepName, result.Duration.Round(time.Millisecond))
		}
	}

	return results
}

func (r *Runner) runStep(suite TestSuite, step TestStep, stepName string) TestResult {
	start := time.Now()
	result := TestResult{
		TestName: suite.Name,
		StepName: stepName,
	}

	response, err := r.sendTurn(chat.TurnRequest{
		PlayerID:  suite.PlayerID,
		Character: suite.Character,
		Prompt:    step.Prompt,
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}

	result.ResponseText = response.Response
	if err := checkExpectations(step.Expectations, response); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

func (r *Runner) sendTurn(request chat.TurnRequest) (*chat.TurnResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := r.Client.Post(r.BaseURL+"/v1/turn", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("turn returned status %d: %s", resp.StatusCode, string(body))
	}

	var turnResp chat.TurnResponse
	if err := json.Unmarshal(body, &turnResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &turnResp, nil
}

func checkExpectations(expect Expectations, response *chat.TurnResponse) error {
	lower := strings.ToLower(response.Response)

	for _, want := range expect.ResponseContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("response does not contain %q: %s", want, response.Response)
		}
	}
	for _, avoid := range expect.ResponseNotContains {
		if strings.Contains(lower, strings.ToLower(avoid)) {
			return fmt.Errorf("response unexpectedly contains %q: %s", avoid, response.Response)
		}
	}
	if expect.ResponseRegex != "" {
		re, err := regexp.Compile(expect.ResponseRegex)
		if err != nil {
			return fmt.Errorf("invalid response_regex %q: %w", expect.ResponseRegex, err)
		}
		if !re.MatchString(response.Response) {
			return fmt.Errorf("response does not match %q: %s", expect.ResponseRegex, response.Response)
		}
	}
	if expect.ResponseMinLength != nil && len(response.Response) < *expect.ResponseMinLength {
		return fmt.Errorf("response shorter than %d chars: %s", *expect.ResponseMinLength, response.Response)
	}
	if expect.InventoryUpdated != nil && response.InventoryUpdated != *expect.InventoryUpdated {
		return fmt.Errorf("expected inventory_updated=%v, got %v", *expect.InventoryUpdated, response.InventoryUpdated)
	}
	if expect.ActionPerformed != nil {
		performed := response.ActionResult != ""
		if performed != *expect.ActionPerformed {
			return fmt.Errorf("expected action_performed=%v, action_result=%q", *expect.ActionPerformed, response.ActionResult)
		}
	}
	return nil
}

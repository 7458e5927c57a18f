package deploy

import "context"

// FakeRuntimeClient is a scripted RuntimeClient for tests: Launch always
// answers with Result (or Err, if set), recording every recipe it was
// handed.
type FakeRuntimeClient struct {
	Result *LaunchResult
	Err    error

	StatusValue string
	StatusErr   error

	Launches []BuildRecipe
}

// NewFakeRuntimeClient returns a FakeRuntimeClient that always answers Launch
// with result.
func NewFakeRuntimeClient(result *LaunchResult) *FakeRuntimeClient {
	return &FakeRuntimeClient{Result: result, StatusValue: "RUNNING"}
}

func (f *FakeRuntimeClient) Launch(_ context.Context, recipe BuildRecipe) (*LaunchResult, error) {
	f.Launches = append(f.Launches, recipe)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}

func (f *FakeRuntimeClient) Status(_ context.Context, _ string) (string, error) {
	if f.StatusErr != nil {
		return "", f.StatusErr
	}
	return f.StatusValue, nil
}

func (f *FakeRuntimeClient) Close() error { return nil }

// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package detect is used to find information from the environment.
package detect

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/transport"
)

const projectIDSentinel = "*detect-project-id*"

// ProjectID tries to detect the project ID from the environment if the
// sentinel value, "*detect-project-id*", is sent. It looks in the following
// order:
//  1. The GOOGLE_CLOUD_PROJECT envvar.
//  2. The project associated with the application default credentials.
//  3. A static value if the environment is emulated.
func ProjectID(ctx context.Context, projectID string, emulatorEnvVar string, opts ...option.ClientOption) (string, error) {
	if projectID != projectIDSentinel {
		return projectID, nil
	}
	if id := os.Getenv("GOOGLE_CLOUD_PROJECT"); id != "" {
		return id, nil
	}
	creds, err := transport.Creds(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("fetching creds: %v", err)
	}
	if creds.ProjectID == "" && emulatorEnvVar != "" && os.Getenv(emulatorEnvVar) != "" {
		return "emulated-project", nil
	}
	if creds.ProjectID == "" {
		return "", errors.New("unable to detect projectID, please refer to docs for DetectProjectID")
	}
	return creds.ProjectID, nil
}

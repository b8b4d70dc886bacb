// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/specimaging/radcal/core/awsutil"
	"github.com/specimaging/radcal/core/fileaccess"
	"github.com/specimaging/radcal/core/logger"
	"github.com/specimaging/radcal/pipeline/config"
	"github.com/specimaging/radcal/pipeline/driver"
	"github.com/specimaging/radcal/pipeline/output"
)

// CalibrationEvent - names everything one calibration run needs in a single
// bucket: the run config document, the raw input object and where to put
// the calibrated output
type CalibrationEvent struct {
	Bucket     string `json:"bucket"`
	ConfigPath string `json:"configpath"`
	InputPath  string `json:"inputpath"`
	OutputPath string `json:"outputpath"`
}

func HandleRequest(ctx context.Context, event CalibrationEvent) (string, error) {
	ilog := &logger.StdOutLogger{}

	sess, err := awsutil.GetSession()
	if err != nil {
		return "", err
	}
	svc, err := awsutil.GetS3(sess)
	if err != nil {
		return "", err
	}
	remoteFS := fileaccess.MakeS3Access(svc)

	configJSON, err := remoteFS.ReadObject(event.Bucket, event.ConfigPath)
	if err != nil {
		return "", err
	}
	cfg, err := config.NewConfigFromJSON(configJSON)
	if err != nil {
		return "", err
	}

	// Lambda only gets writable space under /tmp
	workingDir, err := os.MkdirTemp("/tmp", "radcal")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workingDir)

	ilog.Infof("Downloading s3://%v/%v", event.Bucket, event.InputPath)
	rawData, err := remoteFS.ReadObject(event.Bucket, event.InputPath)
	if err != nil {
		return "", err
	}

	cfg.InputFile = filepath.Join(workingDir, filepath.Base(event.InputPath))
	cfg.OutputFile = filepath.Join(workingDir, filepath.Base(event.OutputPath))
	if err := os.WriteFile(cfg.InputFile, rawData, 0644); err != nil {
		return "", err
	}

	lines, err := driver.ProcessFiles(cfg, remoteFS, event.Bucket, ilog)
	if err != nil {
		return "", err
	}

	uploads := [][2]string{
		{cfg.OutputFile, event.OutputPath},
		{output.HeaderPathFor(cfg.OutputFile), output.HeaderPathFor(event.OutputPath)},
	}
	for _, upload := range uploads {
		data, err := os.ReadFile(upload[0])
		if err != nil {
			return "", err
		}
		ilog.Infof("Uploading s3://%v/%v", event.Bucket, upload[1])
		if err := remoteFS.WriteObject(event.Bucket, upload[1], data); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("Calibrated %v lines to s3://%v/%v", lines, event.Bucket, event.OutputPath), nil
}

func main() {
	lambda.Start(HandleRequest)
}

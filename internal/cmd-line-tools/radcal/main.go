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
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/specimaging/radcal/core/awsutil"
	"github.com/specimaging/radcal/core/fileaccess"
	"github.com/specimaging/radcal/core/logger"
	"github.com/specimaging/radcal/pipeline/config"
	"github.com/specimaging/radcal/pipeline/driver"
	"github.com/specimaging/radcal/pipeline/output"
)

func main() {
	fmt.Println("=====================================")
	fmt.Println("=  Radiometric calibration pipeline =")
	fmt.Println("=====================================")

	ilog := &logger.StdOutLogger{}

	// Calibration references can come from local disk or S3...

	var argConfigPath = flag.String("config", "", "Path to run config JSON file")
	var argSource = flag.String("source", "local", "Where calibration references and raw data live: local, s3")
	var argCalibBucket = flag.String("calib-bucket", "", "S3 bucket (or local directory) holding the calibration reference files")
	var argRawBucket = flag.String("raw-bucket", "", "S3 bucket holding the raw input (s3 source only)")
	var argOutputBucket = flag.String("output-bucket", "", "S3 bucket to upload the calibrated output to (s3 source only)")
	var argInput = flag.String("input", "", "Override for the config input_file path")
	var argOutput = flag.String("output", "", "Override for the config output_file path")
	var argLogLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	if len(*argConfigPath) <= 0 {
		log.Fatalln("No config file specified")
	}
	if len(*argCalibBucket) <= 0 {
		log.Fatalln("calib-bucket not set")
	}

	switch *argLogLevel {
	case "debug":
		ilog.SetLogLevel(logger.LogDebug)
	case "info":
		ilog.SetLogLevel(logger.LogInfo)
	case "warn":
		ilog.SetLogLevel(logger.LogWarn)
	case "error":
		ilog.SetLogLevel(logger.LogError)
	default:
		log.Fatalf("Unknown log level: %v", *argLogLevel)
	}

	cfg, err := config.NewConfigFromFile(*argConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if len(*argInput) > 0 {
		cfg.InputFile = *argInput
	}
	if len(*argOutput) > 0 {
		cfg.OutputFile = *argOutput
	}

	if len(cfg.SentryEndpoint) > 0 {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryEndpoint,
			Environment: cfg.EnvironmentName,
		})
		if err != nil {
			log.Fatalf("sentry.Init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	var lines int

	switch *argSource {
	case "local":
		localFS := &fileaccess.FSAccess{}
		lines, err = driver.ProcessFiles(cfg, localFS, *argCalibBucket, ilog)

	case "s3":
		// Ensure these exist
		if len(*argRawBucket) <= 0 {
			log.Fatalf("raw-bucket not set")
		}
		if len(*argOutputBucket) <= 0 {
			log.Fatalf("output-bucket not set")
		}

		sess, sessErr := awsutil.GetSession()
		if sessErr != nil {
			log.Fatalf("AWS GetSession failed: %v", sessErr)
		}
		svc, s3Err := awsutil.GetS3(sess)
		if s3Err != nil {
			log.Fatalf("AWS GetS3 failed: %v", s3Err)
		}
		remoteFS := fileaccess.MakeS3Access(svc)

		lines, err = processFromS3(cfg, remoteFS, *argCalibBucket, *argRawBucket, *argOutputBucket, ilog)

	default:
		log.Fatalf("Unknown source: %v", *argSource)
		return
	}

	if err != nil {
		if len(cfg.SentryEndpoint) > 0 {
			sentry.CaptureException(err)
		}
		ilog.Errorf("Calibration error: %v", err)
		os.Exit(1)
	}

	ilog.Infof("Calibration complete, wrote %v lines", lines)
}

// Stages the raw input down from S3, runs the calibration with reference
// files read straight from the calibration bucket, then uploads the
// radiance file and its ENVI header to the output bucket under the
// configured output path.
func processFromS3(cfg config.PipelineConfig, remoteFS fileaccess.FileAccess, calibBucket string, rawBucket string, outputBucket string, ilog logger.ILogger) (int, error) {
	workingDir, err := os.MkdirTemp("", "radcal")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(workingDir)

	rawPath := cfg.InputFile
	outputPath := cfg.OutputFile

	ilog.Infof("Downloading s3://%v/%v", rawBucket, rawPath)
	rawData, err := remoteFS.ReadObject(rawBucket, rawPath)
	if err != nil {
		return 0, err
	}

	cfg.InputFile = filepath.Join(workingDir, filepath.Base(rawPath))
	cfg.OutputFile = filepath.Join(workingDir, filepath.Base(outputPath))
	if err := os.WriteFile(cfg.InputFile, rawData, 0644); err != nil {
		return 0, err
	}

	lines, err := driver.ProcessFiles(cfg, remoteFS, calibBucket, ilog)
	if err != nil {
		return lines, err
	}

	uploads := [][2]string{
		{cfg.OutputFile, outputPath},
		{output.HeaderPathFor(cfg.OutputFile), output.HeaderPathFor(outputPath)},
	}
	for _, upload := range uploads {
		data, err := os.ReadFile(upload[0])
		if err != nil {
			return lines, err
		}
		ilog.Infof("Uploading s3://%v/%v", outputBucket, upload[1])
		if err := remoteFS.WriteObject(outputBucket, upload[1], data); err != nil {
			return lines, err
		}
	}

	return lines, nil
}

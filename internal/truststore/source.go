package truststore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

const ssmScheme = "ssm://"

// SSMGetter is the subset of the SSM client used to fetch store parameters.
type SSMGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// read returns the raw store bytes from the filesystem or SSM.
func (l *Loader) read(ctx context.Context, st Store, op string) ([]byte, error) {
	if name, ok := strings.CutPrefix(st.Path, ssmScheme); ok {
		return l.readSSM(ctx, name, st, op)
	}

	path := filepath.Clean(st.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tlserr.New(tlserr.KindIO, op, st.Path, err)
	}
	return data, nil
}

func (l *Loader) readSSM(ctx context.Context, name string, st Store, op string) ([]byte, error) {
	client, err := l.ssmClient(ctx)
	if err != nil {
		return nil, tlserr.New(tlserr.KindIO, op, st.Path, err)
	}

	value, err := getParameter(ctx, client, name)
	if err != nil {
		return nil, tlserr.New(tlserr.KindIO, op, st.Path, err)
	}

	// binary containers are stored base64 encoded
	if st.resolvedFormat() == FormatPEM {
		return []byte(value), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, tlserr.New(tlserr.KindFormat, op, st.Path, fmt.Errorf("parameter is not base64: %w", err))
	}
	return data, nil
}

func (l *Loader) ssmClient(ctx context.Context) (SSMGetter, error) {
	l.ssmOnce.Do(func() {
		if l.ssm != nil {
			return
		}
		awsConfig, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			l.ssmErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		l.ssm = ssm.NewFromConfig(awsConfig)
	})
	return l.ssm, l.ssmErr
}

// getParameter fetches a parameter from SSM
func getParameter(ctx context.Context, client SSMGetter, name string) (string, error) {
	output, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", errors.New("parameter has no value")
	}
	return *output.Parameter.Value, nil
}

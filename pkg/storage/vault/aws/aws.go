package aws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/util"
)

type AWSVault struct {
	client *secretsmanager.Client

	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
}

func NewAWSVault(settings map[string]any) (*AWSVault, error) {
	vault := util.ConfigToStruct[AWSVault](settings)
	if vault.Region == "" {
		return nil, errors.New("region is required")
	}

	cfg, err := awsConfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	if vault.AccessKey != "" && vault.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(vault.AccessKey, vault.SecretKey, "")
	}

	cfg.Region = vault.Region
	vault.client = secretsmanager.NewFromConfig(cfg)

	return vault, nil
}

func (v *AWSVault) GetCredential(name string) (config.Tenant, error) {
	req := secretsmanager.GetSecretValueInput{
		SecretId: aws.String(v.Prefix + name),
	}

	resp, err := v.client.GetSecretValue(context.Background(), &req)
	if err != nil {
		return config.Tenant{}, err
	}

	if resp.SecretString == nil {
		return config.Tenant{}, errors.New("secret string not found")
	}

	var tenant config.Tenant
	if err := json.Unmarshal([]byte(*resp.SecretString), &tenant); err != nil {
		return config.Tenant{}, err
	}
	return tenant, nil
}

func (v *AWSVault) SetCredential(name string, value config.Tenant) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = v.client.PutSecretValue(context.Background(), &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(v.Prefix + name),
		SecretString: aws.String(string(data)),
	})
	return err
}

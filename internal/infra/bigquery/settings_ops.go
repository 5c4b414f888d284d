package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const settingsTable = "app_settings"

// GetSettingWithClient returns the value stored under key, or "" when unset.
func GetSettingWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, key string) (string, error) {
	q := client.Query(`
		SELECT setting_value
		FROM ` + ds.table(settingsTable) + `
		WHERE setting_key = @key
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "key", Value: key},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("GetSetting: query read: %w", err)
	}

	var row struct {
		SettingValue string `bigquery:"setting_value"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GetSetting: iter next: %w", err)
	}
	return row.SettingValue, nil
}

// SetSettingWithClient upserts key = value.
func SetSettingWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, key, value string) error {
	q := client.Query(`
		MERGE ` + ds.table(settingsTable) + ` AS s
		USING (SELECT @key AS setting_key, @value AS setting_value) AS n
		ON s.setting_key = n.setting_key
		WHEN MATCHED THEN
		  UPDATE SET setting_value = n.setting_value, updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN
		  INSERT (setting_key, setting_value, updated_ts)
		  VALUES (n.setting_key, n.setting_value, CURRENT_TIMESTAMP())
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "key", Value: key},
		{Name: "value", Value: value},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("SetSetting: %w", err)
	}
	return nil
}

package settings

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GeneralSetting{}))
	return db
}

func TestServiceReadsSettings(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&GeneralSetting{
		BusinessInformation: datatypes.JSONMap{
			"company_name":   "Glow Studio",
			"business_phone": "+49 30 1234",
		},
		BookingSettings: datatypes.JSONMap{
			"time_zone":   "Europe/Berlin",
			"date_format": "dd.mm.yyyy",
			"time_system": "24",
		},
		SetupPages: datatypes.JSONMap{
			"page_url_customer_dashboard": "https://glow.example/dashboard",
			"front_end_url":               "https://glow.example",
		},
		CompanyLogoURL: "https://glow.example/logo.png",
	}).Error)

	service := NewService(db)
	ctx := context.Background()

	info := service.GetBusinessInfo(ctx)
	require.NotNil(t, info)
	assert.Equal(t, "Glow Studio", info["company_name"])

	assert.Equal(t, "https://glow.example/logo.png", service.GetCompanyLogoURL(ctx))
	assert.Equal(t, "Europe/Berlin", service.GetBookingSetting(ctx, "time_zone"))
	assert.Equal(t, "https://glow.example/dashboard", service.GetDashboardURL(ctx))
	assert.Equal(t, "https://glow.example", service.GetFrontEndURL(ctx))
}

func TestServiceMissingSettingsReturnZeroValues(t *testing.T) {
	service := NewService(openTestDB(t))
	ctx := context.Background()

	assert.Nil(t, service.GetBusinessInfo(ctx))
	assert.Empty(t, service.GetCompanyLogoURL(ctx))
	assert.Empty(t, service.GetBookingSetting(ctx, "time_zone"))
	assert.Empty(t, service.GetDashboardURL(ctx))
}

func TestDateLayout(t *testing.T) {
	assert.Equal(t, "01/02/2006", DateLayout("mm/dd/yyyy"))
	assert.Equal(t, "02.01.2006", DateLayout("dd.mm.yyyy"))
	assert.Equal(t, "2006-01-02", DateLayout("yyyy-mm-dd"))
	assert.Empty(t, DateLayout("weird"))
}

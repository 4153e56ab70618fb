package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/database"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/services"
	"github.com/stretchr/testify/suite"
)

const testTreasury = "0x2222222222222222222222222222222222222222"

// fakeTransferReader serves canned transfers or a canned failure.
type fakeTransferReader struct {
	transfers []models.TokenTransfer
	err       error
}

func (f *fakeTransferReader) GetTreasuryEvents(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	return f.transfers, f.err
}

func (f *fakeTransferReader) GetRawTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	return f.transfers, f.err
}

func (f *fakeTransferReader) FetchTransfers(ctx context.Context, treasuryAddress string) ([]models.TokenTransfer, error) {
	return f.transfers, f.err
}

type ReconciliationServiceTestSuite struct {
	suite.Suite
	db        *database.Database
	transfers *fakeTransferReader
	service   services.ReconciliationService
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	db, err := database.NewSqliteDatabase(filepath.Join(suite.T().TempDir(), "test.db"))
	suite.Require().NoError(err)
	suite.db = db
	suite.transfers = &fakeTransferReader{}

	payments := services.NewPaymentService(db.DB)
	suite.service = services.NewReconciliationService(db.DB, payments, suite.transfers, nil)

	suite.Require().NoError(db.DB.Create(&models.User{Address: "0x1111111111111111111111111111111111111111"}).Error)
	suite.Require().NoError(db.DB.Create(&models.Campaign{
		Title:           "Solar Farm",
		Slug:            "solar-farm",
		OwnerID:         1,
		TreasuryAddress: testTreasury,
	}).Error)
}

func (suite *ReconciliationServiceTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *ReconciliationServiceTestSuite) seedConfirmedPayment(externalID, amount, tip string) {
	suite.Require().NoError(suite.db.DB.Create(&models.Payment{
		ExternalID: externalID,
		UserID:     1,
		CampaignID: 1,
		Amount:     amount,
		TipAmount:  tip,
		Token:      "USDC",
		Provider:   "stripe",
		Status:     models.PaymentStatusConfirmed,
	}).Error)
}

func pledgeTransfer(hash, amount string) models.TokenTransfer {
	// USDC uses 6 decimals; amounts here are smallest units.
	return models.TokenTransfer{
		Hash:        hash,
		From:        "0x1111111111111111111111111111111111111111",
		To:          testTreasury,
		TokenSymbol: "USDC",
		Amount:      amount,
		Decimals:    6,
		Status:      models.TransferStatusSuccess,
	}
}

func (suite *ReconciliationServiceTestSuite) TestMatchedWithinTolerance() {
	suite.seedConfirmedPayment("ext-1", "95", "5")
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "100000000")}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.True(report.ChainDataComplete)
	suite.Equal(models.ReconciliationMatched, report.Comparison.Status)
	suite.Equal("100", report.Comparison.TotalDatabaseAmount)
	suite.Equal("100", report.Comparison.TotalBlockchainAmount)
	suite.Require().Len(report.OnChainTransfers, 1)
	suite.Equal(models.TransferDirectionPledge, report.OnChainTransfers[0].Direction)
}

func (suite *ReconciliationServiceTestSuite) TestExactToleranceBoundaryMatches() {
	suite.seedConfirmedPayment("ext-1", "100.01", "0")
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "100000000")}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Equal(models.ReconciliationMatched, report.Comparison.Status)
}

func (suite *ReconciliationServiceTestSuite) TestBlockchainShort() {
	suite.seedConfirmedPayment("ext-1", "105", "0")
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "100000000")}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Equal(models.ReconciliationBlockchainShort, report.Comparison.Status)
	suite.Equal("5.000000", report.Comparison.Difference)
}

func (suite *ReconciliationServiceTestSuite) TestBlockchainSurplus() {
	suite.seedConfirmedPayment("ext-1", "100", "0")
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "110000000")}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Equal(models.ReconciliationBlockchainSurplus, report.Comparison.Status)
	suite.Equal("-10.000000", report.Comparison.Difference)
}

func (suite *ReconciliationServiceTestSuite) TestWithdrawalsClassifiedButNotSummed() {
	suite.seedConfirmedPayment("ext-1", "100", "0")
	withdrawal := models.TokenTransfer{
		Hash:        "0xh2",
		From:        testTreasury,
		To:          "0x3333333333333333333333333333333333333333",
		TokenSymbol: "USDC",
		Amount:      "40000000",
		Decimals:    6,
		Status:      models.TransferStatusSuccess,
	}
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "100000000"), withdrawal}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Require().Len(report.OnChainTransfers, 2)
	suite.Equal(models.TransferDirectionWithdrawal, report.OnChainTransfers[1].Direction)

	// Outgoing transfers never count against the pledged total.
	suite.Equal(models.ReconciliationMatched, report.Comparison.Status)
	suite.Equal("100", report.Comparison.TotalBlockchainAmount)
}

func (suite *ReconciliationServiceTestSuite) TestIgnoresFailedAndForeignTokenTransfers() {
	suite.seedConfirmedPayment("ext-1", "100", "0")
	failed := pledgeTransfer("0xh2", "50000000")
	failed.Status = models.TransferStatusFailed
	foreign := pledgeTransfer("0xh3", "50000000")
	foreign.TokenSymbol = "WETH"
	suite.transfers.transfers = []models.TokenTransfer{pledgeTransfer("0xh1", "100000000"), failed, foreign}

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.Require().Len(report.OnChainTransfers, 1)
	suite.Equal("100", report.Comparison.TotalBlockchainAmount)
}

func (suite *ReconciliationServiceTestSuite) TestDegradesWhenChainUnavailable() {
	suite.seedConfirmedPayment("ext-1", "100", "0")
	suite.transfers.err = apperrors.NewUpstream(fmt.Errorf("rpc down"), "all transfer sources failed")

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 1)
	suite.Require().NoError(err)
	suite.False(report.ChainDataComplete)
	suite.Empty(report.OnChainTransfers)

	// The database side is always present.
	suite.Require().Len(report.DatabasePayments, 1)
	suite.Equal("100", report.Comparison.TotalDatabaseAmount)
}

func (suite *ReconciliationServiceTestSuite) TestCampaignWithoutTreasury() {
	suite.Require().NoError(suite.db.DB.Create(&models.Campaign{
		Title:   "No Treasury Yet",
		Slug:    "no-treasury",
		OwnerID: 1,
	}).Error)

	report, err := suite.service.ReconcileCampaignTreasury(context.Background(), 2)
	suite.Require().NoError(err)
	suite.True(report.ChainDataComplete)
	suite.Empty(report.OnChainTransfers)
	suite.Equal(models.ReconciliationMatched, report.Comparison.Status)
}

func (suite *ReconciliationServiceTestSuite) TestMissingCampaign() {
	_, err := suite.service.ReconcileCampaignTreasury(context.Background(), 999)
	suite.Error(err)
	suite.True(apperrors.IsNotFound(err))
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}

package services_test

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/database"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"github.com/fundmatch-labs/fundmatch/internal/services"
	"github.com/stretchr/testify/suite"
)

const (
	testActor    = "0x1111111111111111111111111111111111111111"
	testPledgeID = "0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000000"
)

// fakeSigner records submissions and serves configurable outcomes.
type fakeSigner struct {
	txHash        string
	submitErr     error
	waitErr       error
	registerCalls int
	withdrawCalls int
	lastFee       *big.Int
	lastTreasury  string
	lastRecipient string
	lastAmount    *big.Int
}

func (f *fakeSigner) RegisterPledge(ctx context.Context, treasuryAddress, pledgeID string, gatewayFee *big.Int) (string, error) {
	f.registerCalls++
	f.lastTreasury = treasuryAddress
	f.lastFee = gatewayFee
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeSigner) ExecuteWithdrawal(ctx context.Context, treasuryAddress, recipient string, amount *big.Int) (string, error) {
	f.withdrawCalls++
	f.lastTreasury = treasuryAddress
	f.lastRecipient = recipient
	f.lastAmount = amount
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeSigner) WaitForConfirmation(ctx context.Context, txHash string) error {
	return f.waitErr
}

type PledgeServiceTestSuite struct {
	suite.Suite
	db         *database.Database
	signer     *fakeSigner
	actorLocks services.RegistrationLockService
	service    services.PledgeService
}

func (suite *PledgeServiceTestSuite) SetupTest() {
	db, err := database.NewSqliteDatabase(filepath.Join(suite.T().TempDir(), "test.db"))
	suite.Require().NoError(err)
	suite.db = db
	suite.signer = &fakeSigner{txHash: "0xdeadbeef"}
	suite.actorLocks = services.NewRegistrationLockService()
	suite.service = services.NewPledgeService(
		db.DB,
		services.NewExecutionLockService(db.DB),
		suite.actorLocks,
		suite.signer,
	)

	suite.Require().NoError(db.DB.Create(&models.User{Address: testActor}).Error)
	suite.Require().NoError(db.DB.Create(&models.Campaign{
		Title:           "Solar Farm",
		Slug:            "solar-farm",
		OwnerID:         1,
		TreasuryAddress: "0x2222222222222222222222222222222222222222",
	}).Error)
}

func (suite *PledgeServiceTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *PledgeServiceTestSuite) seedPayment(status models.PaymentStatus) *models.Payment {
	payment := &models.Payment{
		ExternalID: fmt.Sprintf("ext-%s-%d", status, suite.signer.registerCalls),
		UserID:     1,
		CampaignID: 1,
		Amount:     "100",
		TipAmount:  "0",
		Token:      "USDC",
		Provider:   "stripe",
		Status:     status,
	}
	suite.Require().NoError(suite.db.DB.Create(payment).Error)
	return payment
}

func (suite *PledgeServiceTestSuite) registerArgs(paymentID uint) services.RegisterPledgeArgs {
	return services.RegisterPledgeArgs{
		PaymentID:    paymentID,
		ActorAddress: testActor,
		PledgeID:     testPledgeID,
		GatewayFee:   "250000",
	}
}

func (suite *PledgeServiceTestSuite) TestRegisterPledge() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)

	result, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Require().NoError(err)
	suite.True(result.Confirmed)
	suite.False(result.AlreadyExecuted)
	suite.Equal("0xdeadbeef", result.TransactionHash)
	suite.Equal(1, suite.signer.registerCalls)
	suite.Equal("250000", suite.signer.lastFee.String())
	suite.Equal("0x2222222222222222222222222222222222222222", suite.signer.lastTreasury)

	var stored models.Payment
	suite.Require().NoError(suite.db.DB.First(&stored, payment.ID).Error)
	suite.Equal(testPledgeID, stored.OnChainPledgeID)
	suite.Equal("0xdeadbeef", stored.TransactionHash)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeIsIdempotent() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)

	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Require().NoError(err)

	result, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Require().NoError(err)
	suite.True(result.AlreadyExecuted)
	suite.True(result.Confirmed)
	suite.Equal("0xdeadbeef", result.TransactionHash)

	// The second call never reaches the signer.
	suite.Equal(1, suite.signer.registerCalls)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeRequiresConfirmedPayment() {
	payment := suite.seedPayment(models.PaymentStatusPending)

	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Error(err)
	suite.True(apperrors.IsParameter(err))
	suite.Equal(0, suite.signer.registerCalls)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeRejectsMalformedPledgeID() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)

	args := suite.registerArgs(payment.ID)
	args.PledgeID = "0x1234"
	_, err := suite.service.RegisterPledge(context.Background(), args)
	suite.Error(err)
	suite.True(apperrors.IsParameter(err))
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeConflictsPerActor() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)

	// Another in-flight registration from the same wallet.
	suite.True(suite.actorLocks.TryAcquire(testActor, "other-subject"))

	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Error(err)
	suite.True(apperrors.IsConflict(err))
	suite.Equal(0, suite.signer.registerCalls)

	// Released locks clear the way.
	suite.actorLocks.Release(testActor)
	_, err = suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.NoError(err)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeReleasesActorLockOnError() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)
	suite.signer.submitErr = apperrors.NewUpstream(fmt.Errorf("rpc down"), "failed to send transaction")

	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Error(err)
	suite.True(apperrors.IsUpstream(err))

	suite.signer.submitErr = nil
	_, err = suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.NoError(err)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeTimeoutCommitsUnconfirmed() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)
	suite.signer.waitErr = apperrors.NewTimeout("transaction 0xdeadbeef unconfirmed after wait")

	result, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Require().NoError(err)
	suite.False(result.Confirmed)
	suite.Equal("0xdeadbeef", result.TransactionHash)

	// The hash is recorded so the submission stays traceable, but the pledge
	// is not marked executed: a retry remains possible.
	var stored models.Payment
	suite.Require().NoError(suite.db.DB.First(&stored, payment.ID).Error)
	suite.Equal("0xdeadbeef", stored.TransactionHash)
	suite.Empty(stored.OnChainPledgeID)
}

func (suite *PledgeServiceTestSuite) TestRegisterPledgeRevertRollsBack() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)
	suite.signer.waitErr = fmt.Errorf("transaction 0xdeadbeef reverted")

	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Error(err)
	suite.True(strings.Contains(err.Error(), "reverted"))

	var stored models.Payment
	suite.Require().NoError(suite.db.DB.First(&stored, payment.ID).Error)
	suite.Empty(stored.TransactionHash)
	suite.Empty(stored.OnChainPledgeID)
}

func (suite *PledgeServiceTestSuite) TestExecuteWithdrawal() {
	withdrawal := &models.WithdrawalRequest{
		CampaignID: 1,
		Recipient:  "0x3333333333333333333333333333333333333333",
		Amount:     "40.5",
		Status:     models.WithdrawalStatusPending,
	}
	suite.Require().NoError(suite.db.DB.Create(withdrawal).Error)

	result, err := suite.service.ExecuteWithdrawal(context.Background(), withdrawal.ID)
	suite.Require().NoError(err)
	suite.True(result.Confirmed)
	suite.Equal("40500000", suite.signer.lastAmount.String())
	suite.Equal("0x3333333333333333333333333333333333333333", suite.signer.lastRecipient)

	var stored models.WithdrawalRequest
	suite.Require().NoError(suite.db.DB.First(&stored, withdrawal.ID).Error)
	suite.Equal(models.WithdrawalStatusExecuted, stored.Status)
	suite.Equal("0xdeadbeef", stored.TransactionHash)

	// Executing again reports the recorded outcome without resubmitting.
	again, err := suite.service.ExecuteWithdrawal(context.Background(), withdrawal.ID)
	suite.Require().NoError(err)
	suite.True(again.AlreadyExecuted)
	suite.Equal(1, suite.signer.withdrawCalls)
}

func (suite *PledgeServiceTestSuite) TestExecutionWithoutSignerFailsUpstream() {
	payment := suite.seedPayment(models.PaymentStatusConfirmed)
	withdrawal := &models.WithdrawalRequest{
		CampaignID: 1,
		Recipient:  "0x3333333333333333333333333333333333333333",
		Amount:     "40.5",
		Status:     models.WithdrawalStatusPending,
	}
	suite.Require().NoError(suite.db.DB.Create(withdrawal).Error)

	// A deployment without a platform key serves read paths only; execution
	// requests must come back as upstream errors, never reach the signer.
	unsigned := services.NewPledgeService(
		suite.db.DB,
		services.NewExecutionLockService(suite.db.DB),
		services.NewRegistrationLockService(),
		nil,
	)

	_, err := unsigned.RegisterPledge(context.Background(), suite.registerArgs(payment.ID))
	suite.Error(err)
	suite.True(apperrors.IsUpstream(err))

	_, err = unsigned.ExecuteWithdrawal(context.Background(), withdrawal.ID)
	suite.Error(err)
	suite.True(apperrors.IsUpstream(err))

	var stored models.Payment
	suite.Require().NoError(suite.db.DB.First(&stored, payment.ID).Error)
	suite.Empty(stored.OnChainPledgeID)
}

func (suite *PledgeServiceTestSuite) TestExecuteWithdrawalMissing() {
	_, err := suite.service.ExecuteWithdrawal(context.Background(), 999)
	suite.Error(err)
	suite.True(apperrors.IsNotFound(err))
}

func (suite *PledgeServiceTestSuite) TestListUnexecutedPledges() {
	executed := suite.seedPayment(models.PaymentStatusConfirmed)
	_, err := suite.service.RegisterPledge(context.Background(), suite.registerArgs(executed.ID))
	suite.Require().NoError(err)

	pending := suite.seedPayment(models.PaymentStatusPending)
	_ = pending
	unexecuted := suite.seedPayment(models.PaymentStatusConfirmed)

	payments, err := suite.service.ListUnexecutedPledges(0)
	suite.Require().NoError(err)
	suite.Require().Len(payments, 1)
	suite.Equal(unexecuted.ID, payments[0].ID)
}

func TestPledgeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PledgeServiceTestSuite))
}

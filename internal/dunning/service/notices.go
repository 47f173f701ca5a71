package service

import (
	"fmt"
	"strings"

	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	dunningdomain "github.com/openwaterops/revassure/internal/dunning/domain"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
)

// noticeTemplates maps each collection bucket to its escalation tier.
var noticeTemplates = map[ledgerdomain.AgingBucket]dunningdomain.NoticeTemplate{
	ledgerdomain.Bucket30Label: {
		Subject:  "Payment reminder for account {account}",
		Message:  "Dear {name}, your water account {account} has an overdue balance of {amount}. Please settle at your earliest convenience to avoid escalation.",
		Severity: "reminder",
	},
	ledgerdomain.Bucket60Label: {
		Subject:  "Payment warning for account {account}",
		Message:  "Dear {name}, account {account} remains unpaid with {amount} overdue. Settle within 14 days to avoid disconnection procedures.",
		Severity: "warning",
	},
	ledgerdomain.Bucket90Label: {
		Subject:  "Urgent: settle account {account} now",
		Message:  "Dear {name}, {amount} on account {account} is seriously overdue. Your supply is scheduled for disconnection unless payment is received within 7 days.",
		Severity: "urgent",
	},
	ledgerdomain.BucketOver90L: {
		Subject:  "Final notice for account {account}",
		Message:  "Dear {name}, account {account} carries {amount} in long-overdue debt. Disconnection is imminent and recovery action will follow.",
		Severity: "critical",
	},
}

func renderTemplate(bucket ledgerdomain.AgingBucket, account accountdomain.Account, amount int64) dunningdomain.NoticeTemplate {
	tpl := noticeTemplates[bucket]
	replacer := strings.NewReplacer(
		"{name}", account.CustomerName,
		"{amount}", formatAmount(amount),
		"{account}", account.AccountNo,
	)
	return dunningdomain.NoticeTemplate{
		Subject:  replacer.Replace(tpl.Subject),
		Message:  replacer.Replace(tpl.Message),
		Severity: tpl.Severity,
	}
}

func formatAmount(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	return fmt.Sprintf("%s%d.%02d", sign, minorUnits/100, minorUnits%100)
}

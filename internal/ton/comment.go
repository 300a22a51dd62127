package ton

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xssnick/tonutils-go/tlb"
)

// maxCommentLen is the longest comment wallets reliably carry in one cell.
const maxCommentLen = 127

// PaymentComment is the memo a user attaches to a TON top-up so the indexer can
// match the transfer to its pending payment.
func PaymentComment(amountFantics, userID int64) string {
	c := fmt.Sprintf("Fantics %d ID:%d", amountFantics, userID)
	if len(c) > maxCommentLen {
		c = fmt.Sprintf("Fantics %d", amountFantics)
	}
	return c
}

// TransferLink builds a ton:// deep link that opens a wallet with the transfer prefilled.
func TransferLink(to string, amountNano int64, comment string) string {
	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%d", amountNano))
	if comment != "" {
		q.Set("text", comment)
	}
	return fmt.Sprintf("ton://transfer/%s?%s", to, q.Encode())
}

// ExtractComment parses a text comment from an InternalMessage body.
// TON text comments have opcode 0x00000000 followed by UTF-8 text.
func ExtractComment(inMsg *tlb.InternalMessage) string {
	if inMsg == nil || inMsg.Body == nil {
		return ""
	}

	slice := inMsg.Body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}

	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	remaining := slice.BitsLeft()
	if remaining < 8 {
		return ""
	}

	data, err := slice.LoadSlice(remaining)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// Package parser reads ledger text into the directive model. It covers the
// directive grammar the storage engine works with: dated directives with
// metadata and postings, option lines, and include lines. Comments and
// blank lines are skipped; they are addressed by line ranges, not by the
// directive model.
//
// Every parsed directive carries its source file and 1-indexed starting
// line in its metadata, which the storage engine later turns into line
// ranges for in-place editing.
package parser

import (
	"regexp"
	"strings"

	"github.com/beanbot-go/beanbot/ast"
)

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numberRe   = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
	currencyRe = regexp.MustCompile(`^[A-Z][A-Z0-9'._-]*$`)
	metaRe     = regexp.MustCompile(`^([a-z][A-Za-z0-9_-]*):\s*(.*)$`)
	tagRe      = regexp.MustCompile(`^#[A-Za-z0-9_-]+$`)
	linkRe     = regexp.MustCompile(`^\^[A-Za-z0-9_-]+$`)
)

// ParseBytes parses ledger text. The filename is recorded in each
// directive's source metadata and in any parse errors. On syntax problems
// the partial file and an ErrorList are both returned; callers that need
// an all-or-nothing load must treat a non-nil error as fatal.
func ParseBytes(filename string, data []byte) (*ast.File, error) {
	p := &fileParser{
		filename: filename,
		lines:    strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"),
		file:     &ast.File{},
	}
	if len(data) == 0 {
		p.lines = nil
	}

	p.parse()

	if len(p.errs) > 0 {
		return p.file, p.errs
	}
	return p.file, nil
}

type fileParser struct {
	filename string
	lines    []string
	errs     ErrorList
	file     *ast.File
}

func (p *fileParser) parse() {
	for i := 0; i < len(p.lines); {
		line := p.lines[i]
		lineno := i + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, ";"):
			i++

		case hasKeyword(line, "option"):
			p.parseOption(lineno, line)
			i++

		case hasKeyword(line, "include"):
			p.parseInclude(lineno, line)
			i++

		case startsWithDate(line):
			body, next := p.continuationLines(i + 1)
			p.parseDirective(lineno, line, body)
			i = next

		default:
			p.errorf(lineno, "unexpected line %q", trimmed)
			i++
		}
	}
}

// continuationLines collects the indented lines following a directive
// header. A blank or unindented line ends the directive.
func (p *fileParser) continuationLines(from int) (body []string, next int) {
	next = from
	for next < len(p.lines) {
		line := p.lines[next]
		if line == "" || (!strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t")) {
			break
		}
		body = append(body, line)
		next++
	}
	return body, next
}

// hasKeyword reports whether line starts with keyword as a whole token,
// so "options" or "optionally" are not mistaken for an option line.
func hasKeyword(line, keyword string) bool {
	rest, ok := strings.CutPrefix(line, keyword)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func startsWithDate(line string) bool {
	if len(line) < 10 {
		return false
	}
	return dateRe.MatchString(line[:10])
}

func (p *fileParser) parseOption(lineno int, line string) {
	toks, err := tokenize(line)
	if err != nil {
		p.errorf(lineno, "%s", err)
		return
	}
	if len(toks) != 3 || !toks[1].quoted || !toks[2].quoted {
		p.errorf(lineno, `option requires two quoted strings`)
		return
	}
	p.file.Options = append(p.file.Options, &ast.Option{Name: toks[1].text, Value: toks[2].text})
}

func (p *fileParser) parseInclude(lineno int, line string) {
	toks, err := tokenize(line)
	if err != nil {
		p.errorf(lineno, "%s", err)
		return
	}
	if len(toks) != 2 || !toks[1].quoted {
		p.errorf(lineno, `include requires one quoted filename`)
		return
	}
	p.file.Includes = append(p.file.Includes, &ast.Include{Filename: toks[1].text})
}

func (p *fileParser) parseDirective(lineno int, header string, body []string) {
	toks, err := tokenize(header)
	if err != nil {
		p.errorf(lineno, "%s", err)
		return
	}
	if len(toks) < 2 {
		p.errorf(lineno, "directive requires a keyword after the date")
		return
	}

	date, err := ast.ParseDate(toks[0].text)
	if err != nil {
		p.errorf(lineno, "%s", err)
		return
	}

	var d ast.Directive
	keyword := toks[1].text
	args := toks[2:]

	switch {
	case keyword == "*" || keyword == "!" || keyword == "txn":
		d = p.parseTransaction(lineno, date, keyword, args, body)
		body = nil // postings and metadata already consumed
	case keyword == "open":
		d = p.parseOpen(lineno, date, args)
	case keyword == "close":
		d = p.parseAccountOnly(lineno, date, args, func(a ast.Account) ast.Directive {
			return &ast.Close{Date: date, Account: a}
		})
	case keyword == "commodity":
		d = p.parseCommodity(lineno, date, args)
	case keyword == "balance":
		d = p.parseBalance(lineno, date, args)
	case keyword == "pad":
		d = p.parsePad(lineno, date, args)
	case keyword == "note":
		d = p.parseAccountString(lineno, date, args, "note", func(a ast.Account, s string) ast.Directive {
			return &ast.Note{Date: date, Account: a, Comment: s}
		})
	case keyword == "document":
		d = p.parseAccountString(lineno, date, args, "document", func(a ast.Account, s string) ast.Directive {
			return &ast.Document{Date: date, Account: a, Path: s}
		})
	case keyword == "price":
		d = p.parsePrice(lineno, date, args)
	case keyword == "event":
		d = p.parseEvent(lineno, date, args)
	case keyword == "custom":
		d = p.parseCustom(lineno, date, args)
	default:
		p.errorf(lineno, "unknown directive %q", keyword)
		return
	}

	if d == nil {
		return
	}

	if body != nil {
		p.parseMetadata(lineno, body, d.Meta())
	}

	d.Meta().SetSource(p.filename, lineno)
	p.file.Directives = append(p.file.Directives, d)
}

func (p *fileParser) parseTransaction(lineno int, date ast.Date, flag string, args []token, body []string) ast.Directive {
	if flag == "txn" {
		flag = "*"
	}
	txn := &ast.Transaction{Date: date, Flag: flag}

	var strs []string
	for _, t := range args {
		switch {
		case t.quoted:
			strs = append(strs, t.text)
		case tagRe.MatchString(t.text):
			txn.Tags = append(txn.Tags, t.text[1:])
		case linkRe.MatchString(t.text):
			txn.Links = append(txn.Links, t.text[1:])
		default:
			p.errorf(lineno, "unexpected token %q in transaction header", t.text)
			return nil
		}
	}
	switch len(strs) {
	case 0:
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee, txn.Narration = strs[0], strs[1]
	default:
		p.errorf(lineno, "too many strings in transaction header")
		return nil
	}

	for off, raw := range body {
		bodyLineno := lineno + 1 + off
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if m := metaRe.FindStringSubmatch(trimmed); m != nil {
			p.addMetadata(bodyLineno, txn.Meta(), m[1], m[2])
			continue
		}
		posting := p.parsePosting(bodyLineno, trimmed)
		if posting != nil {
			txn.Postings = append(txn.Postings, posting)
		}
	}
	return txn
}

func (p *fileParser) parsePosting(lineno int, line string) *ast.Posting {
	toks, err := tokenize(line)
	if err != nil {
		p.errorf(lineno, "%s", err)
		return nil
	}
	if len(toks) == 0 {
		return nil
	}

	posting := &ast.Posting{}
	if toks[0].text == "*" || toks[0].text == "!" {
		posting.Flag = toks[0].text
		toks = toks[1:]
	}
	if len(toks) == 0 {
		p.errorf(lineno, "posting requires an account")
		return nil
	}

	posting.Account = ast.Account(toks[0].text)
	if !posting.Account.Valid() {
		p.errorf(lineno, "invalid account %q", toks[0].text)
		return nil
	}
	toks = toks[1:]

	switch len(toks) {
	case 0:
		// Amount left to be inferred; the engine stores it as-is.
	case 2:
		amount := p.parseAmount(lineno, toks[0], toks[1])
		if amount == nil {
			return nil
		}
		posting.Amount = amount
	default:
		p.errorf(lineno, "malformed posting amount")
		return nil
	}
	return posting
}

func (p *fileParser) parseAmount(lineno int, num, cur token) *ast.Amount {
	if num.quoted || !numberRe.MatchString(num.text) {
		p.errorf(lineno, "invalid number %q", num.text)
		return nil
	}
	if cur.quoted || !currencyRe.MatchString(cur.text) {
		p.errorf(lineno, "invalid currency %q", cur.text)
		return nil
	}
	return ast.NewAmount(num.text, cur.text)
}

func (p *fileParser) parseOpen(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) < 1 {
		p.errorf(lineno, "open requires an account")
		return nil
	}
	open := &ast.Open{Date: date, Account: ast.Account(args[0].text)}
	if !open.Account.Valid() {
		p.errorf(lineno, "invalid account %q", args[0].text)
		return nil
	}
	for _, t := range args[1:] {
		if t.quoted {
			open.BookingMethod = t.text
			continue
		}
		for _, cur := range strings.Split(t.text, ",") {
			if !currencyRe.MatchString(cur) {
				p.errorf(lineno, "invalid currency %q", cur)
				return nil
			}
			open.Currencies = append(open.Currencies, cur)
		}
	}
	return open
}

func (p *fileParser) parseAccountOnly(lineno int, date ast.Date, args []token, build func(ast.Account) ast.Directive) ast.Directive {
	if len(args) != 1 {
		p.errorf(lineno, "directive requires exactly one account")
		return nil
	}
	account := ast.Account(args[0].text)
	if !account.Valid() {
		p.errorf(lineno, "invalid account %q", args[0].text)
		return nil
	}
	return build(account)
}

func (p *fileParser) parseCommodity(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) != 1 || args[0].quoted || !currencyRe.MatchString(args[0].text) {
		p.errorf(lineno, "commodity requires a currency code")
		return nil
	}
	return &ast.Commodity{Date: date, Currency: args[0].text}
}

func (p *fileParser) parseBalance(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) != 3 {
		p.errorf(lineno, "balance requires an account and an amount")
		return nil
	}
	account := ast.Account(args[0].text)
	if !account.Valid() {
		p.errorf(lineno, "invalid account %q", args[0].text)
		return nil
	}
	amount := p.parseAmount(lineno, args[1], args[2])
	if amount == nil {
		return nil
	}
	return &ast.Balance{Date: date, Account: account, Amount: amount}
}

func (p *fileParser) parsePad(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) != 2 {
		p.errorf(lineno, "pad requires two accounts")
		return nil
	}
	account, accountPad := ast.Account(args[0].text), ast.Account(args[1].text)
	if !account.Valid() || !accountPad.Valid() {
		p.errorf(lineno, "invalid account in pad directive")
		return nil
	}
	return &ast.Pad{Date: date, Account: account, AccountPad: accountPad}
}

func (p *fileParser) parseAccountString(lineno int, date ast.Date, args []token, keyword string, build func(ast.Account, string) ast.Directive) ast.Directive {
	if len(args) != 2 || !args[1].quoted {
		p.errorf(lineno, "%s requires an account and a quoted string", keyword)
		return nil
	}
	account := ast.Account(args[0].text)
	if !account.Valid() {
		p.errorf(lineno, "invalid account %q", args[0].text)
		return nil
	}
	return build(account, args[1].text)
}

func (p *fileParser) parsePrice(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) != 3 || !currencyRe.MatchString(args[0].text) {
		p.errorf(lineno, "price requires a commodity and an amount")
		return nil
	}
	amount := p.parseAmount(lineno, args[1], args[2])
	if amount == nil {
		return nil
	}
	return &ast.Price{Date: date, Commodity: args[0].text, Amount: amount}
}

func (p *fileParser) parseEvent(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) != 2 || !args[0].quoted || !args[1].quoted {
		p.errorf(lineno, "event requires two quoted strings")
		return nil
	}
	return &ast.Event{Date: date, Name: args[0].text, Value: args[1].text}
}

func (p *fileParser) parseCustom(lineno int, date ast.Date, args []token) ast.Directive {
	if len(args) < 1 || !args[0].quoted {
		p.errorf(lineno, "custom requires a quoted type string")
		return nil
	}
	custom := &ast.Custom{Date: date, Type: args[0].text}

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		t := rest[i]
		switch {
		case t.quoted:
			s := t.text
			custom.Values = append(custom.Values, &ast.CustomValue{String: &s})
		case t.text == "TRUE" || t.text == "FALSE":
			b := t.text == "TRUE"
			custom.Values = append(custom.Values, &ast.CustomValue{Boolean: &b})
		case numberRe.MatchString(t.text):
			// A number followed by a currency is an amount.
			if i+1 < len(rest) && !rest[i+1].quoted && currencyRe.MatchString(rest[i+1].text) {
				custom.Values = append(custom.Values, &ast.CustomValue{
					Amount: ast.NewAmount(t.text, rest[i+1].text),
				})
				i++
				continue
			}
			n := t.text
			custom.Values = append(custom.Values, &ast.CustomValue{Number: &n})
		default:
			p.errorf(lineno, "unexpected custom value %q", t.text)
			return nil
		}
	}
	return custom
}

// parseMetadata reads indented "key: value" lines into a metadata map.
func (p *fileParser) parseMetadata(lineno int, body []string, meta ast.Meta) {
	for off, raw := range body {
		bodyLineno := lineno + 1 + off
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		m := metaRe.FindStringSubmatch(trimmed)
		if m == nil {
			p.errorf(bodyLineno, "expected metadata, got %q", trimmed)
			continue
		}
		p.addMetadata(bodyLineno, meta, m[1], m[2])
	}
}

func (p *fileParser) addMetadata(lineno int, meta ast.Meta, key, rawValue string) {
	if key == ast.MetaFilename || key == ast.MetaLineno {
		p.errorf(lineno, "metadata key %q is reserved", key)
		return
	}
	value := strings.TrimSpace(rawValue)
	if strings.HasPrefix(value, `"`) {
		toks, err := tokenize(value)
		if err != nil || len(toks) != 1 {
			p.errorf(lineno, "malformed metadata string for key %q", key)
			return
		}
		value = toks[0].text
	}
	meta[key] = value
}

// token is one whitespace-delimited or quoted element of a line.
type token struct {
	text   string
	quoted bool
}

// tokenize splits a line into tokens, honoring quoted strings with \" and
// \\ escapes and truncating at a comment outside quotes.
func tokenize(line string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++

		case c == ';':
			return toks, nil

		case c == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(line) {
				if line[i] == '\\' && i+1 < len(line) {
					b.WriteByte(line[i+1])
					i += 2
					continue
				}
				if line[i] == '"' {
					i++
					closed = true
					break
				}
				b.WriteByte(line[i])
				i++
			}
			if !closed {
				return nil, &unterminatedString{}
			}
			toks = append(toks, token{text: b.String(), quoted: true})

		default:
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != ';' {
				i++
			}
			toks = append(toks, token{text: line[start:i]})
		}
	}
	return toks, nil
}

type unterminatedString struct{}

func (*unterminatedString) Error() string { return "unterminated string" }

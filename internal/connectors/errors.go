package connectors

import (
	"fmt"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Kind: тег результата вызова агента. Каждый вызывающий обязан обработать все три.
type Kind int

const (
	KindOK Kind = iota
	KindParseError
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindParseError:
		return "parse_error"
	case KindTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result: Ok(ответ) | ParseError | TransportError
type Result struct {
	Kind       Kind
	StatusCode int               // HTTP-код агента (0 при TransportError)
	Reply      domain.AgentReply // заполнен только при KindOK
	Body       []byte            // сырое тело ответа, если было получено
	Err        error             // причина при ParseError/TransportError
}

func okResult(status int, reply domain.AgentReply, body []byte) Result {
	return Result{Kind: KindOK, StatusCode: status, Reply: reply, Body: body}
}

func parseError(status int, body []byte, err error) Result {
	return Result{
		Kind:       KindParseError,
		StatusCode: status,
		Body:       body,
		Err:        fmt.Errorf("%w: %v", domain.ErrUpstreamInvalidResponse, err),
	}
}

// TransportFailure оборачивает сетевую ошибку, таймаут или открытый предохранитель.
func TransportFailure(err error) Result {
	return Result{Kind: KindTransportError, Err: fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)}
}

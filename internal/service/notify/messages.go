package notify

import "context"

// Notification kinds carried in the payload "type" field.
const (
	KindRing   = "ring"
	KindLinked = "linked"
)

const (
	ringTitle   = "Sun's Thinking of the Moon 💕"
	linkedTitle = "You are now linked! 💖"
)

// RingParams addresses a ring to a partner.
type RingParams struct {
	PartnerID   string
	PartnerName string
	SenderName  string
}

// LinkedParams addresses a pairing confirmation to a partner.
type LinkedParams struct {
	PartnerID   string
	PartnerName string
	SenderName  string
}

// RingMessage builds the ring content. partnerName falls back to the target's
// stored name.
func RingMessage(senderName, partnerName string) Message {
	body := "Your partner is thinking of you!"
	if senderName != "" {
		body = senderName + " is thinking of you!"
	}
	return Message{
		Title: ringTitle,
		Body:  body,
		Data:  payload(KindRing, senderName, partnerName),
	}
}

// LinkedMessage builds the pairing confirmation and its local fallback text.
func LinkedMessage(senderName, partnerName string) (Message, string) {
	body := "Your partner just linked hearts with you."
	if senderName != "" {
		body = senderName + " just linked hearts with you."
	}
	fallback := "Link successful! Ask your partner to open the app to see the connection."
	if partnerName != "" {
		fallback = "Linked with " + partnerName + "! Ask them to open the app to see the connection."
	}
	return Message{
		Title: linkedTitle,
		Body:  body,
		Data:  payload(KindLinked, senderName, partnerName),
	}, fallback
}

func payload(kind, senderName, partnerName string) map[string]string {
	return map[string]string{
		"type":        kind,
		"senderName":  senderName,
		"partnerName": partnerName,
	}
}

// SendRing pings the partner. Rings are ephemeral, so there is no local fallback.
func (d *Dispatcher) SendRing(ctx context.Context, p RingParams) (*Result, error) {
	target, err := d.target(ctx, p.PartnerID)
	if err != nil {
		return nil, err
	}
	partnerName := p.PartnerName
	if partnerName == "" {
		partnerName = target.Name
	}
	return d.dispatch(ctx, target, RingMessage(p.SenderName, partnerName), ""), nil
}

// SendPartnerLinked tells the partner the pairing went through. If no device is
// reached the sender gets a local confirmation instead.
func (d *Dispatcher) SendPartnerLinked(ctx context.Context, p LinkedParams) (*Result, error) {
	target, err := d.target(ctx, p.PartnerID)
	if err != nil {
		return nil, err
	}
	// The fallback text names the partner only when the caller knew the name.
	msg, fallback := LinkedMessage(p.SenderName, p.PartnerName)
	if p.PartnerName == "" {
		msg.Data["partnerName"] = target.Name
	}
	return d.dispatch(ctx, target, msg, fallback), nil
}

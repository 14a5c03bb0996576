package features

import ft "github.com/els0r/goExtract/pkg/features/featuretypes"

// Normalize turns a decoded packet into a record. If the packet cannot be used,
// ok is false and reason says why. TCP ports take precedence over UDP ports should
// the decoder have found both headers
func Normalize(ev *ft.Event) (rec ft.PacketRecord, reason ft.DropReason, ok bool) {
	if !ev.HasNetwork {
		return rec, ft.DropNoNetworkLayer, false
	}
	if !ev.Consistent() {
		return rec, ft.DropMalformed, false
	}

	rec.Timestamp = ev.Timestamp
	rec.Length = uint32(ev.FrameLen)

	switch {
	case ev.TCP != nil:
		rec.Transport = ft.TransportTCP
		rec.SrcPort, rec.DstPort = ft.NewPort(ev.TCP.Src), ft.NewPort(ev.TCP.Dst)
	case ev.UDP != nil:
		rec.Transport = ft.TransportUDP
		rec.SrcPort, rec.DstPort = ft.NewPort(ev.UDP.Src), ft.NewPort(ev.UDP.Dst)
	default:
		rec.Transport = ft.TransportOther
	}

	return rec, 0, true
}

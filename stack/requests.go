package stack

import (
	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

func getDescriptor(ctrl pipe.HostController, ep *usb.Endpoint, descType usb.DescriptorType, index uint8, buf []byte) (int, error) {
	reqType := usb.NewRequestType(usb.DirectionIn, usb.KindStandard, usb.RecipientDevice)
	value := usb.LoHi(index, uint8(descType))
	return ctrl.ControlTransfer(ep, reqType, usb.ReqGetDescriptor, value, 0, buf)
}

func setAddress(ctrl pipe.HostController, ep *usb.Endpoint, addr usb.DevAddress) error {
	reqType := usb.NewRequestType(usb.DirectionOut, usb.KindStandard, usb.RecipientDevice)
	_, err := ctrl.ControlTransfer(ep, reqType, usb.ReqSetAddress, usb.WValue(addr), 0, nil)
	return err
}

func setConfiguration(ctrl pipe.HostController, ep *usb.Endpoint, value uint8) error {
	reqType := usb.NewRequestType(usb.DirectionOut, usb.KindStandard, usb.RecipientDevice)
	_, err := ctrl.ControlTransfer(ep, reqType, usb.ReqSetConfiguration, usb.WValue(value), 0, nil)
	return err
}

func setInterface(ctrl pipe.HostController, ep *usb.Endpoint, iface, alt uint8) error {
	reqType := usb.NewRequestType(usb.DirectionOut, usb.KindStandard, usb.RecipientInterface)
	_, err := ctrl.ControlTransfer(ep, reqType, usb.ReqSetInterface, usb.WValue(alt), uint16(iface), nil)
	return err
}

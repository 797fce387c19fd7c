// Package route53 fulfills DNS-01 challenge records in an Amazon Route 53
// hosted zone.
//
// The adapter exposes the three operations the issuance workflow needs:
// create a TXT record, wait for the change to be globally in sync, and
// delete the record afterwards. WaitForPropagation is the one call expected
// to block for tens of seconds; it polls the Route 53 change status with
// exponential backoff until INSYNC or a bounded timeout, which surfaces as
// renewal.ErrChallengeTimeout.
//
//	dns, err := route53.New(ctx, route53.Config{
//		HostedZoneID: "Z0123456789ABCDEFGHIJ",
//		Region:       "us-east-1",
//	})
//
//	changeID, err := dns.CreateRecord(ctx, "_acme-challenge.example.com.", token)
//	err = dns.WaitForPropagation(ctx, changeID)
//	defer dns.DeleteRecord(ctx, "_acme-challenge.example.com.", token)
package route53
